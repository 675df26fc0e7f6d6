package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/shared"
)

// AssetRepository implements asset.Repository using PostgreSQL.
type AssetRepository struct {
	db querier
}

// NewAssetRepository creates a new AssetRepository. Create uses a
// savepoint, so q must be a transaction.
func NewAssetRepository(q querier) *AssetRepository {
	return &AssetRepository{db: q}
}

const assetSelect = `SELECT id, asset_name, ip_address, asset_type, created_at FROM assets`

// Create inserts the asset inside a savepoint. A unique violation on the
// address rolls back to the savepoint, leaving the transaction usable,
// and returns an error wrapping asset.ErrAssetAlreadyExists.
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	if _, err := r.db.ExecContext(ctx, "SAVEPOINT asset_create"); err != nil {
		return fmt.Errorf("failed to set savepoint: %w", err)
	}

	query := `
		INSERT INTO assets (id, asset_name, ip_address, asset_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.Name(),
		a.IPAddress(),
		a.Type().String(),
		a.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if _, rbErr := r.db.ExecContext(ctx, "ROLLBACK TO SAVEPOINT asset_create"); rbErr != nil {
				return fmt.Errorf("failed to roll back to savepoint: %v (original error: %w)", rbErr, err)
			}
			return asset.AlreadyExistsError(a.IPAddress())
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, "RELEASE SAVEPOINT asset_create"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// GetByIP returns the asset registered at the address.
func (r *AssetRepository) GetByIP(ctx context.Context, ip string) (*asset.Asset, error) {
	row := r.db.QueryRowContext(ctx, assetSelect+` WHERE ip_address = $1`, ip)
	a, err := scanAsset(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, asset.NotFoundByIPError(ip)
		}
		return nil, fmt.Errorf("failed to get asset by ip: %w", err)
	}
	return a, nil
}

// GetByID returns the asset with the given ID.
func (r *AssetRepository) GetByID(ctx context.Context, id shared.ID) (*asset.Asset, error) {
	row := r.db.QueryRowContext(ctx, assetSelect+` WHERE id = $1`, id.String())
	a, err := scanAsset(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%s", asset.ErrAssetNotFound, id)
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return a, nil
}

func scanAsset(scan func(dest ...any) error) (*asset.Asset, error) {
	var (
		id        shared.ID
		name      string
		ip        string
		assetType string
		createdAt time.Time
	)
	if err := scan(&id, &name, &ip, &assetType, &createdAt); err != nil {
		return nil, err
	}
	return asset.Reconstitute(id, name, ip, asset.AssetType(assetType), createdAt), nil
}
