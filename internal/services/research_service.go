package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/report"
)

const researchSystemPrompt = "You are a professional urban policy analyst with access to comprehensive research capabilities. " +
	"Conduct thorough research using multiple sources and provide detailed analysis in the requested format."

const (
	researchTemperature = 0.3
	researchMaxTokens   = 4000
)

// ResearchService runs the deep-research prompt against a completion provider.
type ResearchService struct {
	completion CompletionService
	now        func() time.Time
}

func NewResearchService(completion CompletionService) *ResearchService {
	return &ResearchService{completion: completion, now: time.Now}
}

// Conduct renders the research prompt for the selection, or uses customPrompt when it is
// not empty, and returns the completion with its metadata.
func (s *ResearchService) Conduct(ctx context.Context, cities, pillars []string, months int, customPrompt string) (*models.Research, error) {
	if s.completion == nil {
		return nil, fmt.Errorf("research service has no completion provider")
	}
	now := s.now()
	prompt := customPrompt
	if prompt == "" {
		prompt = report.ResearchPrompt(cities, pillars, months, now)
	}

	log.Infof("Conducting research for %d cities and %d pillars with %s", len(cities), len(pillars), s.completion.ModelName())
	content, err := s.completion.GenerateChatCompletion(ctx, []ChatMessage{
		{Role: ChatMessageRoleSystem, Content: researchSystemPrompt},
		{Role: ChatMessageRoleUser, Content: prompt},
	}, CompletionOptions{Temperature: researchTemperature, MaxTokens: researchMaxTokens, Operation: "research"})
	if err != nil {
		return nil, fmt.Errorf("conduct research: %w", err)
	}

	return &models.Research{
		Content:        content,
		GeneratedAt:    now.UTC(),
		Cities:         cities,
		Pillars:        pillars,
		Period:         fmt.Sprintf("Last %d months", months),
		Model:          s.completion.Name() + "/" + s.completion.ModelName(),
		PromptLength:   len(prompt),
		ResponseLength: len(content),
		Status:         "completed",
	}, nil
}
