package services

import (
	"context"

	"citypulse/internal/store" // For ProviderStatus
)

// ChatMessageRole defines the role of the message sender (system, user, assistant).
type ChatMessageRole string

const (
	ChatMessageRoleSystem    ChatMessageRole = "system"
	ChatMessageRoleUser      ChatMessageRole = "user"
	ChatMessageRoleAssistant ChatMessageRole = "assistant" // Or "model" for Gemini
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// CompletionOptions tune one completion call. Operation labels the call in cost tracking.
type CompletionOptions struct {
	Temperature float32
	MaxTokens   int
	Operation   string
}

// CompletionService defines the interface for generating text completions or chat responses.
type CompletionService interface {
	GenerateChatCompletion(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
	Status() store.ProviderStatus
	Name() string      // Provider name (e.g., "openai", "gemini")
	ModelName() string // Specific model used
}
