package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SamplingConfig limits how many identical records are written per tick.
// Identical means same level and message.
type SamplingConfig struct {
	Enabled bool

	// Tick is the window after which counters reset (default 1s).
	Tick time.Duration

	// Threshold records per key are always written in each window
	// (default 100).
	Threshold uint64

	// Rate is the fraction of records past Threshold that are written,
	// in [0, 1]. ErrorRate applies instead at warn level and above.
	Rate      float64
	ErrorRate float64
}

type samplingState struct {
	mu          sync.Mutex
	windowStart time.Time
	counts      map[string]uint64
}

type samplingHandler struct {
	next  slog.Handler
	cfg   SamplingConfig
	state *samplingState
}

// NewSamplingHandler wraps h with sampling. It returns h unchanged when
// sampling is disabled.
func NewSamplingHandler(h slog.Handler, cfg SamplingConfig) slog.Handler {
	if !cfg.Enabled {
		return h
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = 100
	}
	return &samplingHandler{
		next:  h,
		cfg:   cfg,
		state: &samplingState{windowStart: time.Now(), counts: make(map[string]uint64)},
	}
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	n := h.state.observe(r.Level.String()+":"+r.Message, h.cfg.Tick)
	if n <= h.cfg.Threshold {
		return h.next.Handle(ctx, r)
	}

	rate := h.cfg.Rate
	if r.Level >= slog.LevelWarn {
		rate = h.cfg.ErrorRate
	}
	if keep(n-h.cfg.Threshold, rate) {
		return h.next.Handle(ctx, r)
	}

	recordDropped(r.Level)
	return nil
}

// WithAttrs and WithGroup share counters with the parent so that derived
// loggers cannot bypass the limit.
func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{next: h.next.WithAttrs(attrs), cfg: h.cfg, state: h.state}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{next: h.next.WithGroup(name), cfg: h.cfg, state: h.state}
}

func (s *samplingState) observe(key string, tick time.Duration) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := time.Now(); now.Sub(s.windowStart) >= tick {
		s.windowStart = now
		clear(s.counts)
	}
	s.counts[key]++
	return s.counts[key]
}

// keep samples deterministically: the n-th record past the threshold is
// kept when n is a multiple of 1/rate.
func keep(n uint64, rate float64) bool {
	switch {
	case rate >= 1:
		return true
	case rate <= 0:
		return false
	}
	return n%uint64(1/rate) == 0
}
