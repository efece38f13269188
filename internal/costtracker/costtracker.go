package costtracker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"citypulse/internal/config"
)

// CostEvent represents a single AI usage event and its cost.
type CostEvent struct {
	Operation string // e.g. "sentiment", "summary", "research"
	AmountUSD float64
	Details   map[string]interface{}
}

// CostTracker provides methods to record and report costs.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
}

// Usage is the token accounting returned by one completion call.
type Usage struct {
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
}

// New returns an in-memory tracker safe for concurrent use.
func New() *MemoryTracker {
	return &MemoryTracker{}
}

// MemoryTracker keeps every event for the lifetime of the process.
type MemoryTracker struct {
	mu     sync.Mutex
	events []CostEvent
	total  float64
}

func (m *MemoryTracker) RecordCost(ctx context.Context, event CostEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.total += event.AmountUSD
	return nil
}

func (m *MemoryTracker) TotalCost(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, nil
}

// ByOperation sums recorded cost per operation.
func (m *MemoryTracker) ByOperation() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64)
	for _, e := range m.events {
		out[e.Operation] += e.AmountUSD
	}
	return out
}

// Events returns a copy of the recorded events.
func (m *MemoryTracker) Events() []CostEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CostEvent(nil), m.events...)
}

// Record prices a completion call against the configured per-model pricing and records
// it. Missing pricing is logged and skipped; failures to record are logged, never returned.
func Record(ctx context.Context, tracker CostTracker, pricing map[string]config.PricingInfo, operation string, usage Usage) {
	if tracker == nil || usage.InputTokens+usage.OutputTokens == 0 {
		return
	}
	priceInfo, ok := pricing[usage.Model]
	if !ok {
		log.Warnf("Pricing info not found for model '%s'. Cannot record cost for %s.", usage.Model, operation)
		return
	}
	cost := float64(usage.InputTokens)*priceInfo.InputPerToken +
		float64(usage.OutputTokens)*priceInfo.OutputPerToken

	event := CostEvent{
		Operation: operation,
		AmountUSD: cost,
		Details: map[string]interface{}{
			"provider_name": usage.Provider,
			"model_name":    usage.Model,
			"input_tokens":  usage.InputTokens,
			"output_tokens": usage.OutputTokens,
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := tracker.RecordCost(ctx, event); err != nil {
		log.Errorf("Failed to record AI usage for %s: %v", operation, err)
		return
	}
	log.Debugf("Recorded AI usage: Provider=%s, Operation=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		usage.Provider, operation, usage.Model, usage.InputTokens, usage.OutputTokens, cost)
}
