package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/pkg/logger"
)

// Client owns the connection pool shared by the rate limiter and the
// readiness probe.
type Client struct {
	rdb    *redis.Client
	addr   string
	logger *logger.Logger
}

// New connects to Redis. The first PING is retried with capped
// exponential backoff until it succeeds, the retries run out, or ctx ends.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("redis config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	rdb := redis.NewClient(options(cfg))
	c := &Client{rdb: rdb, addr: cfg.Addr(), logger: log.With("component", "redis", "addr", cfg.Addr())}

	if err := c.waitReady(ctx, cfg); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	c.logger.Info("redis ready", "pool_size", cfg.PoolSize, "tls", cfg.TLSEnabled)
	return c, nil
}

func options(cfg *config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:            cfg.Addr(),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryDelay,
		MaxRetryBackoff: cfg.MaxRetryDelay,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify, //nolint:gosec // opt-in for self-signed dev servers
			MinVersion:         tls.VersionTLS12,
		}
	}
	return opts
}

func (c *Client) waitReady(ctx context.Context, cfg *config.RedisConfig) error {
	var err error
	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		err = c.rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		delay := retryDelay(attempt, cfg.MinRetryDelay, cfg.MaxRetryDelay)
		c.logger.Warn("redis not ready, retrying", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis connect to %s: %w", c.addr, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("redis connect to %s after %d attempts: %w", c.addr, cfg.MaxRetries+1, err)
}

// retryDelay doubles min per attempt, capped at max.
func retryDelay(attempt int, minDelay, maxDelay time.Duration) time.Duration {
	d := minDelay
	for i := 0; i < attempt && d < maxDelay; i++ {
		d *= 2
	}
	if maxDelay > 0 && d > maxDelay {
		return maxDelay
	}
	return d
}

// Close closes the pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *redis.Client {
	return c.rdb
}
