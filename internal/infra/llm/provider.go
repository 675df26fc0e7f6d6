// Package llm talks to the chat-completion service that writes executive
// finding summaries.
package llm

import (
	"context"
	"errors"
)

// Provider produces one completion per request.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name and Model identify the backend in logs.
	Name() string
	Model() string
	Validate() error
}

// CompletionRequest is a single system plus user prompt exchange.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	// Temperature overrides the provider default when non-zero.
	Temperature float64
}

// CompletionResponse carries the generated text and token accounting.
type CompletionResponse struct {
	Content      string
	Model        string // as reported by the backend
	FinishReason string

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

var (
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	ErrRateLimited           = errors.New("llm rate limited")
	ErrInvalidResponse       = errors.New("invalid llm response")
)
