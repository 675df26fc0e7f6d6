package finding

import (
	"fmt"
	"time"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Finding is one normalized observation tied to an asset. Findings are
// immutable once created.
type Finding struct {
	id          shared.ID
	assetID     shared.ID
	title       string
	sourceType  string
	severity    Severity
	rawEvidence RawEvidence
	ingestedAt  time.Time
}

// NewFinding creates a finding on the given asset from a normalized row.
func NewFinding(assetID shared.ID, n Normalized) (*Finding, error) {
	if assetID.IsZero() {
		return nil, fmt.Errorf("%w: asset id is required", shared.ErrValidation)
	}
	if n.Title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if !n.Severity.IsValid() {
		return nil, fmt.Errorf("%w: invalid severity %q", shared.ErrValidation, n.Severity)
	}

	evidence := n.RawEvidence
	if evidence == nil {
		evidence = RawEvidence{}
	}

	return &Finding{
		id:          shared.NewID(),
		assetID:     assetID,
		title:       n.Title,
		sourceType:  n.SourceType,
		severity:    n.Severity,
		rawEvidence: evidence,
		ingestedAt:  time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds a Finding from persisted state.
func Reconstitute(
	id, assetID shared.ID,
	title, sourceType string,
	severity Severity,
	rawEvidence RawEvidence,
	ingestedAt time.Time,
) *Finding {
	return &Finding{
		id:          id,
		assetID:     assetID,
		title:       title,
		sourceType:  sourceType,
		severity:    severity,
		rawEvidence: rawEvidence,
		ingestedAt:  ingestedAt,
	}
}

// ID returns the finding ID.
func (f *Finding) ID() shared.ID {
	return f.id
}

// AssetID returns the owning asset.
func (f *Finding) AssetID() shared.ID {
	return f.assetID
}

// Title returns the normalized title.
func (f *Finding) Title() string {
	return f.title
}

// SourceType returns the label of the tool or feed the row came from.
func (f *Finding) SourceType() string {
	return f.sourceType
}

// Severity returns the normalized severity.
func (f *Finding) Severity() Severity {
	return f.severity
}

// RawEvidence returns the sanitized original row.
func (f *Finding) RawEvidence() RawEvidence {
	return f.rawEvidence
}

// IngestedAt returns when the finding was created.
func (f *Finding) IngestedAt() time.Time {
	return f.ingestedAt
}
