package middleware

import (
	"errors"
	"net/http"
	"strings"
)

// DefaultMaxBodySize is the request body limit used when none is set.
const DefaultMaxBodySize = 1 << 20

// BodyLimitConfig configures BodyLimit.
type BodyLimitConfig struct {
	MaxBytes int64
	// Overrides maps path prefixes to their own limit. The longest
	// matching prefix wins.
	Overrides map[string]int64
}

// BodyLimit caps request body size. Reads past the limit fail with
// *http.MaxBytesError, which handlers report through IsBodyTooLarge.
func BodyLimit(cfg BodyLimitConfig) func(http.Handler) http.Handler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, cfg.limitFor(r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}
}

func (cfg BodyLimitConfig) limitFor(path string) int64 {
	limit, matched := cfg.MaxBytes, 0
	for prefix, n := range cfg.Overrides {
		if strings.HasPrefix(path, prefix) && len(prefix) > matched {
			limit, matched = n, len(prefix)
		}
	}
	return limit
}

// IsBodyTooLarge reports whether err came from reading past a body limit.
// It returns the limit that was exceeded.
func IsBodyTooLarge(err error) (int64, bool) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return maxErr.Limit, true
	}
	return 0, false
}
