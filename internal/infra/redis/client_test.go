package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/pkg/logger"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retryDelay(tt.attempt, 100*time.Millisecond, time.Second), "attempt %d", tt.attempt)
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), nil, logger.NewNop())
	require.Error(t, err)

	_, err = New(context.Background(), &config.RedisConfig{}, nil)
	require.Error(t, err)
}

func TestNew_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, &config.RedisConfig{
		Host:          "127.0.0.1",
		Port:          1,
		DialTimeout:   50 * time.Millisecond,
		MaxRetries:    3,
		MinRetryDelay: time.Second,
		MaxRetryDelay: time.Second,
	}, logger.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptions_TLS(t *testing.T) {
	opts := options(&config.RedisConfig{Host: "cache", Port: 6380, TLSEnabled: true})
	assert.Equal(t, "cache:6380", opts.Addr)
	require.NotNil(t, opts.TLSConfig)
	assert.False(t, opts.TLSConfig.InsecureSkipVerify)

	assert.Nil(t, options(&config.RedisConfig{Host: "cache", Port: 6379}).TLSConfig)
}
