package finding

// Normalized is the canonical creation value produced from one raw row.
// It carries everything needed to create the asset, the finding and its
// risk.
type Normalized struct {
	AssetName   string      `json:"asset_name" validate:"required,max=255"`
	IPAddress   string      `json:"ip_address" validate:"required,max=255"`
	Title       string      `json:"normalized_title" validate:"required"`
	SourceType  string      `json:"source_type" validate:"required,source_name"`
	Severity    Severity    `json:"normalized_severity" validate:"required,severity"`
	RawEvidence RawEvidence `json:"raw_evidence"`
}
