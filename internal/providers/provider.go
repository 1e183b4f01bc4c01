// Package providers implements the model invocation collaborators: a narrow
// chat contract plus clients for OpenRouter, OpenAI, Ollama, and tests.
package providers

import (
	"context"
	"errors"
	"time"
)

// ErrNonTextualContent reports a response whose content field is not text.
// This is a shape fault, never silently coerced, and callers must not retry
// it: a model's tendency to misformat does not change between attempts.
var ErrNonTextualContent = errors.New("model response content is not textual")

// Client is the contract for chat-style model invocation. Implementations
// must be safe for concurrent use; the pipeline issues one Chat call per
// window, possibly many in flight.
type Client interface {
	// Chat sends a single rendered prompt and returns the model's response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g. "openrouter").
	Name() string
}

// ChatRequest carries one rendered prompt.
type ChatRequest struct {
	Prompt string

	// Model overrides the client default when set.
	Model string

	// Temperature defaults to 0 for deterministic extraction.
	Temperature float64

	// MaxTokens bounds the completion length (0 = provider default).
	MaxTokens int

	// RequestID is generated when empty.
	RequestID string
}

// ChatResult is the response from a model call.
type ChatResult struct {
	Content string

	Provider  string
	ModelUsed string
	RequestID string

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	ExecutionTime time.Duration
}
