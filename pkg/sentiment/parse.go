package sentiment

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"citypulse/internal/models"
)

const noReason = "No reason provided."

var (
	scorePattern  = regexp.MustCompile(`(?i)Score:\s*([\-+]?[0-9]*\.?[0-9]+)`)
	reasonPattern = regexp.MustCompile(`(?i)Reason:\s*(.*)`)
)

// ParseResponse extracts "Score: <n>" and "Reason: <text>" from a completion. A missing
// or unparseable score is a ScoringError; a missing reason is replaced with a placeholder.
// The score is returned as written; the pipeline rejects values outside [-1, 1].
func ParseResponse(text, content string) (Score, error) {
	m := scorePattern.FindStringSubmatch(content)
	if m == nil {
		return Score{}, &models.ScoringError{Text: text, Reason: "response has no score: " + truncate(content, 80)}
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Score{}, &models.ScoringError{Text: text, Reason: "unparseable score " + strconv.Quote(m[1]), Err: err}
	}

	reason := noReason
	if rm := reasonPattern.FindStringSubmatch(content); rm != nil {
		if r := firstSentence(rm[1]); r != "" {
			reason = r
		}
	}
	return Score{Value: value, Reason: reason}, nil
}

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = t
		}
	})
	return tokenizer
}

// firstSentence keeps only the first sentence of a model's explanation.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	tok := sentenceTokenizer()
	if tok == nil {
		return s
	}
	for _, sent := range tok.Tokenize(s) {
		if t := strings.TrimSpace(sent.Text); t != "" {
			return t
		}
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
