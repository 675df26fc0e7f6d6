package llm

import (
	"github.com/grcmmap/api/internal/config"
)

// NewProvider builds the summary provider from configuration. It returns
// a nil Provider and no error when no usable key is configured, which
// callers treat as offline mode.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}
	return NewOpenAIProvider(OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		MaxRetries:  2,
	})
}
