package app

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/grcmmap/api/pkg/domain/finding"
)

// Columns read from a scanner export. Any other column is kept verbatim as
// raw evidence.
const (
	ColumnIPAddress = "Raw_IP_Address"
	ColumnTitle     = "Raw_Vulnerability_Title"
	ColumnSeverity  = "Vendor_Severity_Code"
)

// Defaults applied when a row omits a field.
const (
	DefaultFindingTitle = "Unknown Finding"
	DefaultSeverityCode = "INFO"
)

// Normalize maps one raw row to the canonical finding shape. It never
// fails: missing fields fall back to defaults and unknown severity codes
// become Low. The address may be empty; callers validate the result.
func Normalize(raw finding.RawEvidence, sourceType string) finding.Normalized {
	evidence := raw.Sanitize()

	ip, _ := evidence.String(ColumnIPAddress)
	ip = strings.TrimSpace(CleanText(ip))

	title, ok := evidence.String(ColumnTitle)
	if ok {
		title = CleanText(title)
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultFindingTitle
	}

	code, ok := evidence.String(ColumnSeverity)
	if !ok {
		code = DefaultSeverityCode
	}

	return finding.Normalized{
		AssetName:   ip,
		IPAddress:   ip,
		Title:       title,
		SourceType:  sourceType,
		Severity:    finding.SeverityFromVendorCode(strings.TrimSpace(code)),
		RawEvidence: evidence,
	}
}

// CleanText composes s to NFC and drops control characters. Plain ASCII
// text without control characters is returned unchanged.
func CleanText(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
