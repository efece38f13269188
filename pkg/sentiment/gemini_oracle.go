package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/models"
)

// ContentGenerator is the part of *genai.GenerativeModel the oracle needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiOracle scores text with a Gemini generative model.
type GeminiOracle struct {
	model     ContentGenerator
	modelName string
	prompt    string

	costTracker costtracker.CostTracker
	pricing     map[string]config.PricingInfo
}

// NewGeminiModel configures a generative model from oracle options.
func NewGeminiModel(client *genai.Client, opts Options) *genai.GenerativeModel {
	m := client.GenerativeModel(opts.Model)
	m.SetTemperature(opts.Temperature)
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	return m
}

func NewGeminiOracle(model ContentGenerator, opts Options, costTracker costtracker.CostTracker, pricing map[string]config.PricingInfo) *GeminiOracle {
	prompt := opts.PromptTemplate
	if prompt == "" {
		prompt = DefaultPromptTemplate
	}
	return &GeminiOracle{
		model:       model,
		modelName:   opts.Model,
		prompt:      prompt,
		costTracker: costTracker,
		pricing:     pricing,
	}
}

func (o *GeminiOracle) Name() string { return "gemini" }

func (o *GeminiOracle) Score(ctx context.Context, req Request) (Score, error) {
	if o.model == nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "gemini oracle is not initialized with a model"}
	}

	resp, err := o.model.GenerateContent(ctx, genai.Text(RenderPrompt(o.prompt, req)))
	if err != nil {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "gemini generate content failed", Err: err}
	}

	content := ResponseText(resp)
	if content == "" {
		return Score{}, &models.ScoringError{Text: req.Text, Reason: "gemini returned no text"}
	}

	if resp.UsageMetadata != nil {
		costtracker.Record(ctx, o.costTracker, o.pricing, "sentiment", costtracker.Usage{
			Provider:     o.Name(),
			Model:        o.modelName,
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		})
	}
	return ParseResponse(req.Text, content)
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			fmt.Fprint(&b, string(t))
		}
	}
	return strings.TrimSpace(b.String())
}

var _ Oracle = (*GeminiOracle)(nil)
