package adapter

import (
	"context"

	"ai-doc-generator/internal/domain/model"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for LLM chat.
type AIServiceAdapter interface {
	// ListModels returns the model names the provider serves.
	ListModels(ctx context.Context) ([]string, error)

	// ChatWithUsage returns assistant text + usage as reported by the provider.
	// Zero usage means the provider did not report it.
	ChatWithUsage(ctx context.Context, model string, messages []Message) (string, Usage, error)
}

// SnippetDescriber turns one batch of snippets into one description per snippet,
// in the same order. Exhausted retries surface as domain.ErrBatchFailed.
type SnippetDescriber interface {
	DescribeBatch(ctx context.Context, snippets []model.Snippet) ([]string, error)
}
