package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadSize)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 150, cfg.LLM.MaxTokens)
	assert.True(t, cfg.Compliance.SeedOnStartup)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Archive.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_UPLOAD_WINDOW", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://grc.example.com, https://ops.example.com")
	t.Setenv("OPENAI_API_KEY", DummyOpenAIKey)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.UploadWindow)
	assert.Equal(t, []string{"https://grc.example.com", "https://ops.example.com"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.LLM.IsConfigured(), "dummy key must not enable live calls")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}, wantErr: "LOG_LEVEL"},
		{name: "archive without bucket", env: map[string]string{"ARCHIVE_ENABLED": "true"}, wantErr: "ARCHIVE_BUCKET"},
		{name: "bad sample ratio", env: map[string]string{"OTEL_SAMPLE_RATIO": "2"}, wantErr: "OTEL_SAMPLE_RATIO"},
		{
			name:    "production with defaults",
			env:     map[string]string{"APP_ENV": "production"},
			wantErr: "DB_SSLMODE",
		},
		{
			name: "production hardened",
			env: map[string]string{
				"APP_ENV":              "production",
				"DB_SSLMODE":           "require",
				"DB_PASSWORD":          "a-real-password",
				"CORS_ALLOWED_ORIGINS": "https://grc.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
