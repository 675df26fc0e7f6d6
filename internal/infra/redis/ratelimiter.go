package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/grcmmap/api/internal/metrics"
	"github.com/grcmmap/api/pkg/logger"
)

// allowScript prunes the window, then records the request when the key
// is under its limit. It returns {allowed, remaining, reset_or_retry_ms}.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local window_ms = tonumber(ARGV[3])
	local limit = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1, now + window_ms}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_at = oldest[2] and (tonumber(oldest[2]) + window_ms) or (now + window_ms)
	return {0, 0, retry_at}
`)

// RateLimiter is a sliding window log limiter shared by every API
// instance. Each key is a sorted set of request timestamps.
type RateLimiter struct {
	scripter  redis.Scripter
	keyPrefix string
	limit     int
	window    time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	// RetryAt is set only when the request was denied.
	RetryAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// each key under prefix.
func NewRateLimiter(client *Client, prefix string, limit int, window time.Duration, log *logger.Logger) (*RateLimiter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newRateLimiter(client.rdb, prefix, limit, window, log)
}

func newRateLimiter(s redis.Scripter, prefix string, limit int, window time.Duration, log *logger.Logger) (*RateLimiter, error) {
	switch {
	case prefix == "":
		return nil, errors.New("key prefix is required")
	case limit <= 0:
		return nil, errors.New("limit must be positive")
	case window <= 0:
		return nil, errors.New("window must be positive")
	case log == nil:
		return nil, errors.New("logger is required")
	}

	return &RateLimiter{
		scripter:  s,
		keyPrefix: prefix,
		limit:     limit,
		window:    window,
		logger:    log,
		now:       time.Now,
	}, nil
}

// Allow consumes one slot for key when one is free.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	now := rl.now()
	res, err := allowScript.Run(ctx, rl.scripter, []string{rl.keyPrefix + ":" + key},
		now.UnixMilli(),
		now.Add(-rl.window).UnixMilli(),
		rl.window.Milliseconds(),
		rl.limit,
		uuid.NewString(),
	).Slice()
	if err != nil {
		metrics.RateLimitDecisionsTotal.WithLabelValues(rl.keyPrefix, metrics.RateLimitError).Inc()
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	result, err := parseAllowResult(res)
	if err != nil {
		metrics.RateLimitDecisionsTotal.WithLabelValues(rl.keyPrefix, metrics.RateLimitError).Inc()
		return nil, err
	}

	if result.Allowed {
		metrics.RateLimitDecisionsTotal.WithLabelValues(rl.keyPrefix, metrics.RateLimitAllowed).Inc()
	} else {
		metrics.RateLimitDecisionsTotal.WithLabelValues(rl.keyPrefix, metrics.RateLimitDenied).Inc()
		rl.logger.Debug("rate limit exceeded", "scope", rl.keyPrefix, "key", key, "retry_at", result.RetryAt)
	}
	return result, nil
}

// Limit returns the maximum requests per window.
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Window returns the window length.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

func parseAllowResult(res []any) (*RateLimitResult, error) {
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit check: unexpected reply length %d", len(res))
	}
	vals := make([]int64, 3)
	for i, v := range res {
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("rate limit check: unexpected reply element %T", v)
		}
		vals[i] = n
	}

	result := &RateLimitResult{
		Allowed:   vals[0] == 1,
		Remaining: int(vals[1]),
		ResetAt:   time.UnixMilli(vals[2]),
	}
	if !result.Allowed {
		result.RetryAt = result.ResetAt
	}
	return result, nil
}
