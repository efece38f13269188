// Package sentiment defines the sentiment oracle used to score content items and the
// provider-backed implementations of it.
package sentiment

import "context"

// Request is one text to score and the subject it should be judged against (a city).
type Request struct {
	Text    string
	Subject string
}

// Score is an oracle verdict. Value is expected, not guaranteed, to lie in [-1,1].
type Score struct {
	Value  float64
	Reason string
}

// Oracle scores the sentiment of a single text. Implementations return a
// *models.ScoringError when no verdict could be obtained; they never substitute a
// default score themselves.
type Oracle interface {
	Score(ctx context.Context, req Request) (Score, error)
	Name() string
}
