package risk

import (
	"context"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Repository persists risks.
type Repository interface {
	// Create inserts the risk. A second risk for the same finding fails
	// with ErrRiskAlreadyExists.
	Create(ctx context.Context, r *Risk) error

	GetByFindingID(ctx context.Context, findingID shared.ID) (*Risk, error)
}
