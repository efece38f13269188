package costtracker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citypulse/internal/config"
)

func TestRecord_UsesModelPricing(t *testing.T) {
	tracker := New()
	pricing := map[string]config.PricingInfo{
		"gpt-4o": {InputPerToken: 0.001, OutputPerToken: 0.002},
	}

	Record(context.Background(), tracker, pricing, "sentiment", Usage{Provider: "openai", Model: "gpt-4o", InputTokens: 100, OutputTokens: 50})

	total, err := tracker.TotalCost(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.2, total, 1e-9)

	events := tracker.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "sentiment", events[0].Operation)
	assert.Equal(t, "gpt-4o", events[0].Details["model_name"])
}

func TestRecord_SkipsUnknownModelAndZeroUsage(t *testing.T) {
	tracker := New()

	Record(context.Background(), tracker, nil, "sentiment", Usage{Model: "unknown", InputTokens: 10})
	Record(context.Background(), tracker, map[string]config.PricingInfo{"m": {InputPerToken: 1}}, "sentiment", Usage{Model: "m"})
	Record(context.Background(), nil, nil, "sentiment", Usage{Model: "m", InputTokens: 1})

	assert.Empty(t, tracker.Events())
}

func TestMemoryTracker_ConcurrentRecording(t *testing.T) {
	tracker := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(op string) {
			defer wg.Done()
			_ = tracker.RecordCost(context.Background(), CostEvent{Operation: op, AmountUSD: 0.5})
		}([]string{"sentiment", "summary"}[i%2])
	}
	wg.Wait()

	total, _ := tracker.TotalCost(context.Background())
	assert.InDelta(t, 25.0, total, 1e-9)
	byOp := tracker.ByOperation()
	assert.InDelta(t, 12.5, byOp["sentiment"], 1e-9)
	assert.InDelta(t, 12.5, byOp["summary"], 1e-9)
}
