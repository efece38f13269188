package services

import (
	"context"
)

// NoopSummaryService is used when summarization is disabled.
type NoopSummaryService struct{}

func (s *NoopSummaryService) Summarise(ctx context.Context, titles []string, label string) (string, error) {
	return "", nil
}

func NewNoopSummaryService() SummaryService {
	return &NoopSummaryService{}
}
