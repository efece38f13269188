package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultSummaryPrompt is followed by a bulleted list of titles. {{LABEL}} names them.
const DefaultSummaryPrompt = "Write a two-sentence analytic blurb for urban planners that captures the key mood and concerns across these {{LABEL}}:"

const (
	summaryTemperature = 0.5
	summaryMaxTokens   = 300
	// Titles beyond this are left out of the prompt.
	summaryMaxTitles = 50
)

var ErrNothingToSummarise = errors.New("no titles to summarise")

type SummaryService interface {
	// Summarise writes a short blurb over titles. label names what they are, e.g. "posts".
	Summarise(ctx context.Context, titles []string, label string) (string, error)
}

// CompletionSummaryService implements SummaryService on any completion provider.
type CompletionSummaryService struct {
	completion CompletionService
	prompt     string
}

func NewSummaryService(completion CompletionService, prompt string) *CompletionSummaryService {
	if prompt == "" {
		prompt = DefaultSummaryPrompt
	}
	return &CompletionSummaryService{completion: completion, prompt: prompt}
}

func (s *CompletionSummaryService) Summarise(ctx context.Context, titles []string, label string) (string, error) {
	if s.completion == nil {
		return "", fmt.Errorf("summary service has no completion provider")
	}
	var lines []string
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			lines = append(lines, "- "+t)
		}
		if len(lines) == summaryMaxTitles {
			break
		}
	}
	if len(lines) == 0 {
		return "", ErrNothingToSummarise
	}
	if label == "" {
		label = "posts"
	}

	prompt := strings.ReplaceAll(s.prompt, "{{LABEL}}", label) + "\n\n" + strings.Join(lines, "\n")
	out, err := s.completion.GenerateChatCompletion(ctx, []ChatMessage{{Role: ChatMessageRoleUser, Content: prompt}},
		CompletionOptions{Temperature: summaryTemperature, MaxTokens: summaryMaxTokens, Operation: "summarization"})
	if err != nil {
		return "", fmt.Errorf("summarise %s: %w", label, err)
	}
	log.Debugf("Summarised %d %s with %s", len(lines), label, s.completion.ModelName())
	return out, nil
}

var _ SummaryService = (*CompletionSummaryService)(nil)
