package finding

import (
	"context"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Repository persists findings.
type Repository interface {
	Create(ctx context.Context, f *Finding) error
	GetByID(ctx context.Context, id shared.ID) (*Finding, error)
}
