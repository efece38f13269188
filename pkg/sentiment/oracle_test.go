package sentiment

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/language/apiv2/languagepb"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/models"
)

// --- Mock OpenAI Client ---
type mockOpenAIClient struct {
	mockResponse openai.ChatCompletionResponse
	mockError    error
	lastRequest  openai.ChatCompletionRequest
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.lastRequest = req
	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	return m.mockResponse, nil
}

// --- End Mock OpenAI Client ---

func chatResponse(content string, promptTokens, completionTokens int) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}
}

func TestOpenAIOracle_Score(t *testing.T) {
	// 1. Mock client returns a well-formed verdict
	mockClient := &mockOpenAIClient{mockResponse: chatResponse("Score: 0.6\nReason: Strong civic pride.", 100, 20)}

	// 2. Oracle records cost against configured pricing
	tracker := costtracker.New()
	pricing := map[string]config.PricingInfo{"gpt-test": {InputPerToken: 0.01, OutputPerToken: 0.02}}
	oracle := NewOpenAIOracle(mockClient, Options{Model: "gpt-test", Temperature: 0.3, MaxTokens: 120}, tracker, pricing)

	// 3. Call the method under test
	score, err := oracle.Score(context.Background(), Request{Text: "Seoul opens new library", Subject: "seoul"})

	// 4. Assert results
	require.NoError(t, err)
	assert.InDelta(t, 0.6, score.Value, 1e-9)
	assert.Equal(t, "Strong civic pride.", score.Reason)

	assert.Equal(t, "gpt-test", mockClient.lastRequest.Model)
	assert.Equal(t, 120, mockClient.lastRequest.MaxTokens)
	assert.InDelta(t, 0.3, mockClient.lastRequest.Temperature, 1e-6)
	require.Len(t, mockClient.lastRequest.Messages, 1)
	assert.Contains(t, mockClient.lastRequest.Messages[0].Content, `Title: "Seoul opens new library"`)

	total, _ := tracker.TotalCost(context.Background())
	assert.InDelta(t, 1.4, total, 1e-9)
}

func TestOpenAIOracle_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client ChatCompletionCreator
	}{
		{"api error", &mockOpenAIClient{mockError: errors.New("rate limited")}},
		{"no choices", &mockOpenAIClient{mockResponse: openai.ChatCompletionResponse{}}},
		{"unparseable", &mockOpenAIClient{mockResponse: chatResponse("Sorry, I can't help.", 1, 1)}},
		{"nil client", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewOpenAIOracle(tt.client, Options{Model: "gpt-test"}, nil, nil)
			_, err := oracle.Score(context.Background(), Request{Text: "x", Subject: "y"})
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrScoring)
		})
	}
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func geminiResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}},
		},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5},
	}
}

func TestGeminiOracle_Score(t *testing.T) {
	oracle := NewGeminiOracle(&fakeGenerator{resp: geminiResponse("Score: -0.4\nReason: Housing costs dominate.")}, Options{Model: "gemini-test"}, costtracker.New(), nil)

	score, err := oracle.Score(context.Background(), Request{Text: "Rents climb again", Subject: "amsterdam"})
	require.NoError(t, err)
	assert.InDelta(t, -0.4, score.Value, 1e-9)
	assert.Equal(t, "Housing costs dominate.", score.Reason)
}

func TestGeminiOracle_Failures(t *testing.T) {
	_, err := NewGeminiOracle(&fakeGenerator{err: errors.New("quota")}, Options{}, nil, nil).Score(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, models.ErrScoring)

	_, err = NewGeminiOracle(&fakeGenerator{resp: &genai.GenerateContentResponse{}}, Options{}, nil, nil).Score(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, models.ErrScoring)
}

type fakeAnalyzer struct {
	resp *languagepb.AnalyzeSentimentResponse
	err  error
	got  *languagepb.AnalyzeSentimentRequest
}

func (f *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest, opts ...gax.CallOption) (*languagepb.AnalyzeSentimentResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestNaturalLanguageOracle_Score(t *testing.T) {
	analyzer := &fakeAnalyzer{resp: &languagepb.AnalyzeSentimentResponse{
		DocumentSentiment: &languagepb.Sentiment{Score: 0.5, Magnitude: 1.25},
	}}
	oracle := NewNaturalLanguageOracle(analyzer)

	score, err := oracle.Score(context.Background(), Request{Text: "Copenhagen tops liveability index", Subject: "copenhagen"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score.Value, 1e-6)
	assert.Equal(t, "Document sentiment 0.50 with magnitude 1.25.", score.Reason)
	assert.Equal(t, "Copenhagen tops liveability index", analyzer.got.GetDocument().GetContent())

	_, err = NewNaturalLanguageOracle(&fakeAnalyzer{err: errors.New("denied")}).Score(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, models.ErrScoring)

	_, err = NewNaturalLanguageOracle(&fakeAnalyzer{resp: &languagepb.AnalyzeSentimentResponse{}}).Score(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, models.ErrScoring)
}
