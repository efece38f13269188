package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/store"
	"citypulse/pkg/sentiment"
)

// OpenAIProvider implements CompletionService on the chat completions API.
type OpenAIProvider struct {
	client      sentiment.ChatCompletionCreator
	model       string
	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewOpenAIProvider returns a disabled provider when client is nil.
func NewOpenAIProvider(client sentiment.ChatCompletionCreator, model string, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAIProvider {
	if client == nil {
		log.Warn("OpenAI client not provided. OpenAI completion provider will be disabled.")
	}
	return &OpenAIProvider{client: client, model: model, costTracker: costTracker, pricing: pricing}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// ModelName returns the specific model identifier.
func (p *OpenAIProvider) ModelName() string { return p.model }

func (p *OpenAIProvider) GenerateChatCompletion(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("OpenAI provider is not initialized (missing API key)")
	}
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	costtracker.Record(ctx, p.costTracker, p.pricing, operationOr(opts.Operation), costtracker.Usage{
		Provider:     p.Name(),
		Model:        p.model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Status returns the operational status of the provider.
func (p *OpenAIProvider) Status() store.ProviderStatus {
	if p.client == nil {
		return store.ProviderStatusDisabled
	}
	return store.ProviderStatusActive
}

func operationOr(op string) string {
	if op == "" {
		return "completion"
	}
	return op
}

var _ CompletionService = (*OpenAIProvider)(nil)
