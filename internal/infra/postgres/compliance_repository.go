package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/shared"
)

// ControlRepository implements compliance.ControlRepository using PostgreSQL.
type ControlRepository struct {
	db querier
}

// NewControlRepository creates a new ControlRepository.
func NewControlRepository(q querier) *ControlRepository {
	return &ControlRepository{db: q}
}

// CreateIfAbsent inserts the control unless the name is taken and returns
// the stored row.
func (r *ControlRepository) CreateIfAbsent(ctx context.Context, c *compliance.Control) (*compliance.Control, error) {
	query := `
		INSERT INTO controls (id, control_name, cia_domain)
		VALUES ($1, $2, $3)
		ON CONFLICT (control_name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, c.ID().String(), c.Name(), c.CIADomain()); err != nil {
		return nil, fmt.Errorf("failed to create control: %w", err)
	}
	return r.GetByName(ctx, c.Name())
}

// GetByName returns the control with the given name.
func (r *ControlRepository) GetByName(ctx context.Context, name string) (*compliance.Control, error) {
	query := `SELECT id, control_name, cia_domain FROM controls WHERE control_name = $1`

	var (
		id        shared.ID
		ctlName   string
		ciaDomain sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(&id, &ctlName, &ciaDomain)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, compliance.ControlNotFoundError(name)
		}
		return nil, fmt.Errorf("failed to get control: %w", err)
	}
	return compliance.ReconstituteControl(id, ctlName, nullStringValue(ciaDomain)), nil
}

// LinkFinding records a finding-control link. Existing links are kept.
func (r *ControlRepository) LinkFinding(ctx context.Context, findingID, controlID shared.ID) error {
	query := `
		INSERT INTO finding_control_links (finding_id, control_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, findingID.String(), controlID.String()); err != nil {
		return fmt.Errorf("failed to link finding to control: %w", err)
	}
	return nil
}

// ListByFinding returns the controls linked to a finding, ordered by name.
func (r *ControlRepository) ListByFinding(ctx context.Context, findingID shared.ID) ([]*compliance.Control, error) {
	query := `
		SELECT c.id, c.control_name, c.cia_domain
		FROM controls c
		JOIN finding_control_links l ON l.control_id = c.id
		WHERE l.finding_id = $1
		ORDER BY c.control_name
	`
	rows, err := r.db.QueryContext(ctx, query, findingID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list controls: %w", err)
	}
	defer rows.Close()

	controls := make([]*compliance.Control, 0)
	for rows.Next() {
		var (
			id        shared.ID
			name      string
			ciaDomain sql.NullString
		)
		if err := rows.Scan(&id, &name, &ciaDomain); err != nil {
			return nil, fmt.Errorf("failed to scan control: %w", err)
		}
		controls = append(controls, compliance.ReconstituteControl(id, name, nullStringValue(ciaDomain)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate controls: %w", err)
	}
	return controls, nil
}

// FrameworkRepository implements compliance.FrameworkRepository using PostgreSQL.
type FrameworkRepository struct {
	db querier
}

// NewFrameworkRepository creates a new FrameworkRepository.
func NewFrameworkRepository(q querier) *FrameworkRepository {
	return &FrameworkRepository{db: q}
}

// CreateIfAbsent inserts the framework unless the name is taken and
// returns the stored row.
func (r *FrameworkRepository) CreateIfAbsent(ctx context.Context, f *compliance.Framework) (*compliance.Framework, error) {
	query := `
		INSERT INTO frameworks (id, name, version)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, f.ID().String(), f.Name(), f.Version()); err != nil {
		return nil, fmt.Errorf("failed to create framework: %w", err)
	}
	return r.GetByName(ctx, f.Name())
}

// GetByName returns the framework with the given name.
func (r *FrameworkRepository) GetByName(ctx context.Context, name string) (*compliance.Framework, error) {
	query := `SELECT id, name, version FROM frameworks WHERE name = $1`

	var (
		id      shared.ID
		fwName  string
		version string
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(&id, &fwName, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, compliance.FrameworkNotFoundError(name)
		}
		return nil, fmt.Errorf("failed to get framework: %w", err)
	}
	return compliance.ReconstituteFramework(id, fwName, version), nil
}

// LinkControl records a framework citation for a control. An existing
// citation is kept.
func (r *FrameworkRepository) LinkControl(ctx context.Context, frameworkID, controlID shared.ID, citation string) error {
	query := `
		INSERT INTO framework_control_links (framework_id, control_id, citation)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, frameworkID.String(), controlID.String(), citation); err != nil {
		return fmt.Errorf("failed to link control to framework: %w", err)
	}
	return nil
}
