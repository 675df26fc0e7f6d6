package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     OpenAIConfig
		wantErr bool
	}{
		{name: "valid config", cfg: OpenAIConfig{APIKey: "test-key", Model: "gpt-3.5-turbo"}},
		{name: "missing API key", cfg: OpenAIConfig{Model: "gpt-3.5-turbo"}, wantErr: true},
		{name: "default model when empty", cfg: OpenAIConfig{APIKey: "test-key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewOpenAIProvider(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProviderNotConfigured)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "openai", provider.Name())
			assert.NotEmpty(t, provider.Model())
		})
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL + "/v1/",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
	require.NoError(t, err)
	p.backoff = func(int) time.Duration { return time.Millisecond }
	return p
}

func TestOpenAIProvider_Complete(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultOpenAIModel, req.Model)
		assert.Equal(t, 150, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "You are an auditor.", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openAIResponse{
			Model: "gpt-3.5-turbo-0125",
			Choices: []openAIChoice{{
				Message:      openAIMessage{Role: "assistant", Content: "  Patch the SSH daemon.  "},
				FinishReason: "stop",
			}},
			Usage: openAIUsage{PromptTokens: 40, CompletionTokens: 10, TotalTokens: 50},
		})
	})

	resp, err := p.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "You are an auditor.",
		UserPrompt:   "Summarize.",
		MaxTokens:    150,
	})
	require.NoError(t, err)
	assert.Equal(t, "Patch the SSH daemon.", resp.Content)
	assert.Equal(t, 50, resp.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	t.Run("retries server errors then fails", func(t *testing.T) {
		var calls atomic.Int32
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := p.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("rate limited", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := p.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("api error body", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
		})

		_, err := p.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Incorrect API key")
	})

	t.Run("no choices", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})

		_, err := p.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}

func TestOpenAIProvider_Validate(t *testing.T) {
	p := &OpenAIProvider{}
	assert.ErrorIs(t, p.Validate(), ErrProviderNotConfigured)

	p.apiKey = "test-key"
	assert.NoError(t, p.Validate())
}
