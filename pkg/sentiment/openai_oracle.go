package sentiment

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/models"
)

// ChatCompletionCreator is the part of *openai.Client the oracle needs.
type ChatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options tune an LLM-backed oracle.
type Options struct {
	Model          string
	Temperature    float32
	MaxTokens      int
	PromptTemplate string
}

// OpenAIOracle scores text with an OpenAI chat completion.
type OpenAIOracle struct {
	client ChatCompletionCreator
	opts   Options

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewOpenAIOracle creates an oracle on an OpenAI-compatible client. costTracker and
// pricing may be nil.
func NewOpenAIOracle(client ChatCompletionCreator, opts Options, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *OpenAIOracle {
	if opts.PromptTemplate == "" {
		opts.PromptTemplate = DefaultPromptTemplate
	}
	return &OpenAIOracle{
		client:      client,
		opts:        opts,
		costTracker: costTracker,
		pricing:     pricing,
	}
}

func (o *OpenAIOracle) Name() string { return "openai" }

func (o *OpenAIOracle) Score(ctx context.Context, req Request) (Score, error) {
	if o.client == nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "openai oracle is not initialized with a client"}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: RenderPrompt(o.opts.PromptTemplate, req)},
		},
	})
	if err != nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "openai chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "no choices returned from OpenAI"}
	}

	costtracker.Record(ctx, o.costTracker, o.pricing, "sentiment", costtracker.Usage{
		Provider:     o.Name(),
		Model:        o.opts.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	score, err := ParseResponse(req.Text, content)
	if err != nil {
		var se *models.ScoringError
		if errors.As(err, &se) {
			log.Debugf("openai oracle: unparseable response for %q: %s", truncate(req.Text, 60), se.Reason)
		}
		return Score{}, err
	}
	return score, nil
}

var _ Oracle = (*OpenAIOracle)(nil)
