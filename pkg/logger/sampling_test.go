package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func countLines(buf *bytes.Buffer) int {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func TestSamplingHandler(t *testing.T) {
	tests := []struct {
		name  string
		cfg   SamplingConfig
		level slog.Level
		total int
		want  int
	}{
		{
			name:  "disabled passes everything",
			cfg:   SamplingConfig{Enabled: false},
			level: slog.LevelInfo,
			total: 200,
			want:  200,
		},
		{
			name:  "threshold then drop",
			cfg:   SamplingConfig{Enabled: true, Tick: time.Minute, Threshold: 10, Rate: 0},
			level: slog.LevelInfo,
			total: 100,
			want:  10,
		},
		{
			name:  "threshold then half",
			cfg:   SamplingConfig{Enabled: true, Tick: time.Minute, Threshold: 10, Rate: 0.5},
			level: slog.LevelInfo,
			total: 110,
			want:  60,
		},
		{
			name:  "errors use error rate",
			cfg:   SamplingConfig{Enabled: true, Tick: time.Minute, Threshold: 1, Rate: 0, ErrorRate: 1},
			level: slog.LevelError,
			total: 50,
			want:  50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), tt.cfg))

			for range tt.total {
				log.Log(t.Context(), tt.level, "row ingested")
			}

			assert.Equal(t, tt.want, countLines(&buf))
		})
	}
}

func TestSamplingHandler_DerivedLoggersShareCounters(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(NewSamplingHandler(slog.NewJSONHandler(&buf, nil), SamplingConfig{
		Enabled: true, Tick: time.Minute, Threshold: 5, Rate: 0,
	}))

	for i := range 20 {
		base.With("row", i).Info("row ingested")
	}

	assert.Equal(t, 5, countLines(&buf))
}

func TestSamplingHandler_CountsDropped(t *testing.T) {
	before := DroppedTotal("warn")

	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(&bytes.Buffer{}, nil), SamplingConfig{
		Enabled: true, Tick: time.Minute, Threshold: 1, Rate: 0, ErrorRate: 0,
	}))
	for range 4 {
		log.Warn("control missing")
	}

	assert.Equal(t, before+3, DroppedTotal("warn"))
}
