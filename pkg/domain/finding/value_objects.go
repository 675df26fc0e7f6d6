package finding

import "strings"

// Severity is the normalized severity of a finding.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// AllSeverities lists severities in ascending order.
func AllSeverities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// IsValid reports whether s is one of the four normalized severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

func (s Severity) String() string {
	return string(s)
}

// vendorSeverities translates scanner severity codes. Lookup is done on the
// upper-cased code.
var vendorSeverities = map[string]Severity{
	"CRITICAL": SeverityCritical,
	"HIGH":     SeverityHigh,
	"MEDIUM":   SeverityMedium,
	"LOW":      SeverityLow,
	"INFO":     SeverityLow,
	"WARNING":  SeverityMedium,
}

// SeverityFromVendorCode maps a raw vendor severity code to a normalized
// Severity. Unrecognized codes map to SeverityLow.
func SeverityFromVendorCode(code string) Severity {
	if s, ok := vendorSeverities[strings.ToUpper(code)]; ok {
		return s
	}
	return SeverityLow
}
