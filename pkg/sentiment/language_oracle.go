package sentiment

import (
	"context"
	"fmt"

	"cloud.google.com/go/language/apiv2/languagepb"
	"github.com/googleapis/gax-go/v2"

	"citypulse/internal/models"
)

// SentimentAnalyzer is the part of the Cloud Natural Language client the oracle needs.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error)
}

// NaturalLanguageOracle scores text with Cloud Natural Language document sentiment. It
// ignores the subject; the score already lies in [-1,1].
type NaturalLanguageOracle struct {
	client SentimentAnalyzer
}

func NewNaturalLanguageOracle(client SentimentAnalyzer) *NaturalLanguageOracle {
	return &NaturalLanguageOracle{client: client}
}

func (o *NaturalLanguageOracle) Name() string { return "language" }

func (o *NaturalLanguageOracle) Score(ctx context.Context, req Request) (Score, error) {
	if o.client == nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "natural language oracle is not initialized with a client"}
	}

	resp, err := o.client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
		Document: &languagepb.Document{
			Source: &languagepb.Document_Content{
				Content: req.Text,
			},
			Type: languagepb.Document_PLAIN_TEXT,
		},
		EncodingType: languagepb.EncodingType_UTF8,
	})
	if err != nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "analyze sentiment failed", Err: err}
	}
	if resp.GetDocumentSentiment() == nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "response has no document sentiment"}
	}

	s := resp.GetDocumentSentiment()
	return Score{
		Value:  float64(s.GetScore()),
		Reason: fmt.Sprintf("Document sentiment %.2f with magnitude %.2f.", s.GetScore(), s.GetMagnitude()),
	}, nil
}

var _ Oracle = (*NaturalLanguageOracle)(nil)
