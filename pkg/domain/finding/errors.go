package finding

import (
	"fmt"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// ErrFindingNotFound is returned when a finding does not exist.
var ErrFindingNotFound = fmt.Errorf("finding %w", shared.ErrNotFound)

// NotFoundError wraps ErrFindingNotFound with the requested ID.
func NotFoundError(id shared.ID) error {
	return fmt.Errorf("%w: id=%s", ErrFindingNotFound, id)
}
