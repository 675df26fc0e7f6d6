package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/shared"
)

// FindingRepository implements finding.Repository using PostgreSQL.
type FindingRepository struct {
	db querier
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(q querier) *FindingRepository {
	return &FindingRepository{db: q}
}

// Create inserts a finding. The raw evidence is stored as JSONB.
func (r *FindingRepository) Create(ctx context.Context, f *finding.Finding) error {
	raw := f.RawEvidence()
	if raw == nil {
		raw = finding.RawEvidence{}
	}
	evidence, err := toJSONB(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw evidence: %w", err)
	}

	query := `
		INSERT INTO findings (
			id, asset_id, normalized_title, source_type, normalized_severity,
			raw_evidence, ingestion_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		f.ID().String(),
		f.AssetID().String(),
		f.Title(),
		f.SourceType(),
		f.Severity().String(),
		evidence,
		f.IngestedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create finding: %w", err)
	}
	return nil
}

// GetByID returns the finding with the given ID.
func (r *FindingRepository) GetByID(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	query := `
		SELECT id, asset_id, normalized_title, source_type, normalized_severity,
		       raw_evidence, ingestion_date
		FROM findings
		WHERE id = $1
	`

	var (
		findingID  shared.ID
		assetID    shared.ID
		title      string
		sourceType string
		severity   string
		evidence   []byte
		ingestedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&findingID, &assetID, &title, &sourceType, &severity, &evidence, &ingestedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, finding.NotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get finding: %w", err)
	}

	var raw finding.RawEvidence
	if err := fromJSONB(evidence, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw evidence: %w", err)
	}

	return finding.Reconstitute(findingID, assetID, title, sourceType, finding.Severity(severity), raw, ingestedAt), nil
}
