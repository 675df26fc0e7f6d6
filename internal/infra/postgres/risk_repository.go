package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/shared"
)

// RiskRepository implements risk.Repository using PostgreSQL.
type RiskRepository struct {
	db querier
}

// NewRiskRepository creates a new RiskRepository.
func NewRiskRepository(q querier) *RiskRepository {
	return &RiskRepository{db: q}
}

// Create inserts the risk of a finding.
func (r *RiskRepository) Create(ctx context.Context, rk *risk.Risk) error {
	query := `
		INSERT INTO risks (
			id, finding_id, inherent_score, residual_score, risk_rating,
			cia_confidentiality, cia_integrity, cia_availability, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	cia := rk.CIA()
	_, err := r.db.ExecContext(ctx, query,
		rk.ID().String(),
		rk.FindingID().String(),
		rk.InherentScore(),
		nullFloat(rk.ResidualScore()),
		rk.Rating().String(),
		cia.Confidentiality,
		cia.Integrity,
		cia.Availability,
		rk.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: finding_id=%s", risk.ErrRiskAlreadyExists, rk.FindingID())
		}
		return fmt.Errorf("failed to create risk: %w", err)
	}
	return nil
}

// GetByFindingID returns the risk of a finding.
func (r *RiskRepository) GetByFindingID(ctx context.Context, findingID shared.ID) (*risk.Risk, error) {
	query := `
		SELECT id, finding_id, inherent_score, residual_score, risk_rating,
		       cia_confidentiality, cia_integrity, cia_availability, created_at
		FROM risks
		WHERE finding_id = $1
	`

	var (
		id        shared.ID
		fid       shared.ID
		inherent  float64
		residual  sql.NullFloat64
		rating    string
		cia       risk.CIA
		createdAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, findingID.String()).Scan(
		&id, &fid, &inherent, &residual, &rating,
		&cia.Confidentiality, &cia.Integrity, &cia.Availability, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: finding_id=%s", risk.ErrRiskNotFound, findingID)
		}
		return nil, fmt.Errorf("failed to get risk: %w", err)
	}

	return risk.Reconstitute(id, fid, inherent, nullFloatValue(residual), risk.Rating(rating), cia, createdAt), nil
}
