package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/internal/config"
	redisinfra "github.com/grcmmap/api/internal/infra/redis"
	"github.com/grcmmap/api/pkg/logger"
)

// echoBody replies with the request body it managed to read, or 413 when
// the body limit was hit.
var echoBody = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(r.Body)
	if _, ok := IsBodyTooLarge(err); ok {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	_, _ = w.Write(b)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc-123", seen)
	})
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(BodyLimitConfig{
		MaxBytes:  8,
		Overrides: map[string]int64{"/findings/upload_csv/": 32},
	})(echoBody)

	tests := []struct {
		name   string
		path   string
		size   int
		status int
	}{
		{"under default", "/other", 8, http.StatusOK},
		{"over default", "/other", 9, http.StatusRequestEntityTooLarge},
		{"override allows more", "/findings/upload_csv/nessus", 32, http.StatusOK},
		{"override still caps", "/findings/upload_csv/nessus", 33, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			body := strings.NewReader(strings.Repeat("x", tt.size))
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, body))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDecompress(t *testing.T) {
	payload := []byte("Raw_IP_Address,Raw_Vulnerability_Title\n10.0.0.1,SSH weak\n")
	h := Decompress(DefaultDecompressConfig())(echoBody)

	gzipped := func() []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(payload)
		_ = zw.Close()
		return buf.Bytes()
	}
	zstded := func() []byte {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		defer enc.Close()
		return enc.EncodeAll(payload, nil)
	}

	tests := []struct {
		name     string
		encoding string
		body     []byte
		status   int
		want     []byte
	}{
		{"identity", "", payload, http.StatusOK, payload},
		{"gzip", "gzip", gzipped(), http.StatusOK, payload},
		{"zstd", "zstd", zstded(), http.StatusOK, payload},
		{"unsupported", "br", payload, http.StatusUnsupportedMediaType, nil},
		{"corrupt gzip", "gzip", []byte("not gzip"), http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/findings/upload_csv/x", bytes.NewReader(tt.body))
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.want != nil {
				assert.Equal(t, tt.want, rec.Body.Bytes())
			}
		})
	}

	t.Run("ratio guard", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(bytes.Repeat([]byte{'a'}, 1<<20))
		_ = zw.Close()

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Encoding", "gzip")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTimeout(t *testing.T) {
	t.Run("fast handler passes through", func(t *testing.T) {
		h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Test", "1")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("ok"))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-Test"))
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("slow handler gets 503", func(t *testing.T) {
		unblock := make(chan struct{})
		writeErr := make(chan error, 1)
		h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			<-unblock
			_, err := w.Write([]byte("late"))
			writeErr <- err
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		close(unblock)

		assert.ErrorIs(t, <-writeErr, http.ErrHandlerTimeout)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "TIMEOUT")
		assert.NotContains(t, rec.Body.String(), "late")
	})

	t.Run("panics reach the caller", func(t *testing.T) {
		h := RecoveryWithConfig(logger.NewNop(), true)(
			Timeout(time.Second)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("boom")
			})),
		)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  0.001,
		Burst:           1,
		CleanupInterval: time.Minute,
	}, logger.NewNop())
	defer rl.Stop()

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:1111"))
}

type fakeDistributedLimiter struct {
	result *redisinfra.RateLimitResult
	err    error
	keys   []string
}

func (f *fakeDistributedLimiter) Allow(_ context.Context, key string) (*redisinfra.RateLimitResult, error) {
	f.keys = append(f.keys, key)
	return f.result, f.err
}

func (f *fakeDistributedLimiter) Limit() int { return 30 }

func TestDistributedRateLimit(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		limiter    *fakeDistributedLimiter
		status     int
		retryAfter bool
	}{
		{
			name: "allowed",
			limiter: &fakeDistributedLimiter{result: &redisinfra.RateLimitResult{
				Allowed: true, Remaining: 29, ResetAt: time.Now().Add(time.Minute),
			}},
			status: http.StatusOK,
		},
		{
			name: "denied",
			limiter: &fakeDistributedLimiter{result: &redisinfra.RateLimitResult{
				Allowed: false, ResetAt: time.Now().Add(time.Minute), RetryAt: time.Now().Add(20 * time.Second),
			}},
			status:     http.StatusTooManyRequests,
			retryAfter: true,
		},
		{
			name:    "limiter error fails open",
			limiter: &fakeDistributedLimiter{err: errors.New("redis down")},
			status:  http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/findings/upload_csv/nessus", nil)
			req.RemoteAddr = "192.0.2.10:5555"
			rec := httptest.NewRecorder()
			DistributedRateLimit(tt.limiter, logger.NewNop())(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, []string{"192.0.2.10"}, tt.limiter.keys)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After") != "")
		})
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	h := SecurityHeaders(SecurityHeadersConfig{HSTSEnabled: true})(
		CORS(&config.CORSConfig{
			AllowedOrigins: []string{"https://dash.example.com"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         600,
		})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/dashboard/summary", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
	})
}
