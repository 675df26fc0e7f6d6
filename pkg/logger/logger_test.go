package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RedactsSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("llm configured", "openai_api_key", "sk-live-123", "db_password", "hunter2", "model", "gpt-3.5-turbo")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "[REDACTED]", rec["openai_api_key"])
	assert.Equal(t, "[REDACTED]", rec["db_password"])
	assert.Equal(t, "gpt-3.5-turbo", rec["model"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	var stdout bytes.Buffer

	log := New(Config{Level: "info", Output: &stdout, File: FileConfig{Path: path, MaxSizeMB: 1}})
	log.Info("ingestion complete", "count", 3)
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ingestion complete")
	assert.Contains(t, stdout.String(), "ingestion complete")
}

func TestWithContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	ctx := context.WithValue(context.Background(), ContextKeyRequestID, "req-42")
	log.WithContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}
