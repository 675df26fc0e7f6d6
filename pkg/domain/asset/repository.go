package asset

import (
	"context"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Repository persists assets. Implementations are bound to a single
// unit of work.
type Repository interface {
	// Create inserts a new asset. It returns an error wrapping
	// ErrAssetAlreadyExists when the address is already taken, and leaves
	// the surrounding unit of work usable in that case.
	Create(ctx context.Context, a *Asset) error

	// GetByIP returns the asset registered at the address.
	GetByIP(ctx context.Context, ip string) (*Asset, error)

	// GetByID returns the asset with the given ID.
	GetByID(ctx context.Context, id shared.ID) (*Asset, error)
}
