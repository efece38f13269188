package services

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/store"
	"citypulse/pkg/sentiment"
)

// GeminiModelFactory builds a generative model configured for one call.
type GeminiModelFactory func(opts CompletionOptions, system string) sentiment.ContentGenerator

// GeminiProvider implements CompletionService using the Google Gemini API.
type GeminiProvider struct {
	newModel    GeminiModelFactory
	model       string
	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewGeminiProvider wraps an existing client. A nil client yields a disabled provider.
func NewGeminiProvider(client *genai.Client, model string, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *GeminiProvider {
	if client == nil {
		log.Warn("Gemini client not provided. Gemini completion provider will be disabled.")
		return &GeminiProvider{model: model}
	}
	factory := func(opts CompletionOptions, system string) sentiment.ContentGenerator {
		m := client.GenerativeModel(model)
		m.SetTemperature(opts.Temperature)
		if opts.MaxTokens > 0 {
			m.SetMaxOutputTokens(int32(opts.MaxTokens))
		}
		if system != "" {
			m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
		}
		return m
	}
	return NewGeminiProviderWithFactory(factory, model, costTracker, pricing)
}

func NewGeminiProviderWithFactory(factory GeminiModelFactory, model string, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *GeminiProvider {
	return &GeminiProvider{newModel: factory, model: model, costTracker: costTracker, pricing: pricing}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return "gemini" }

// ModelName returns the specific model identifier.
func (p *GeminiProvider) ModelName() string { return p.model }

// GenerateChatCompletion sends system messages as the system instruction and the rest as
// text parts in order.
func (p *GeminiProvider) GenerateChatCompletion(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	if p.newModel == nil {
		return "", fmt.Errorf("Gemini provider is not initialized (missing API key)")
	}
	var system string
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == ChatMessageRoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini completion: no user content")
	}

	resp, err := p.newModel(opts, system).GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	text := sentiment.ResponseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini completion: no text returned")
	}
	if resp.UsageMetadata != nil {
		costtracker.Record(ctx, p.costTracker, p.pricing, operationOr(opts.Operation), costtracker.Usage{
			Provider:     p.Name(),
			Model:        p.model,
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		})
	}
	return text, nil
}

// Status returns the operational status of the provider.
func (p *GeminiProvider) Status() store.ProviderStatus {
	if p.newModel == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

var _ CompletionService = (*GeminiProvider)(nil)
