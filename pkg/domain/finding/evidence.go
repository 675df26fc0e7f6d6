package finding

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawEvidence is the original row a finding was normalized from. Keys are
// column names; values are loosely typed scalars.
type RawEvidence map[string]any

// Sanitize returns a copy where values that cannot be stored as JSON are
// replaced by nil: NaN and infinite floats, and blank strings (an empty
// cell is how a tabular export marks a missing value). NUL bytes are
// removed from strings since JSONB rejects them.
func (e RawEvidence) Sanitize() RawEvidence {
	out := make(RawEvidence, len(e))
	for k, v := range e {
		out[k] = sanitizeValue(v)
	}
	return out
}

// String returns the value under key as text, and false when the key is
// absent or nil.
func (e RawEvidence) String(key string) (string, bool) {
	v, ok := e[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	default:
		return stringify(t), true
	}
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	case string:
		t = strings.ReplaceAll(t, "\x00", "")
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return t
	}
	return v
}

func stringify(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
