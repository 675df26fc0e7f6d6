package compliance

import (
	"fmt"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Domain-specific errors for compliance.
var (
	ErrControlNotFound   = fmt.Errorf("control %w", shared.ErrNotFound)
	ErrFrameworkNotFound = fmt.Errorf("framework %w", shared.ErrNotFound)
	ErrInvalidCatalog    = fmt.Errorf("compliance catalog: %w", shared.ErrValidation)
)

// ControlNotFoundError wraps ErrControlNotFound with the control name.
func ControlNotFoundError(name string) error {
	return fmt.Errorf("%w: name=%q", ErrControlNotFound, name)
}

// FrameworkNotFoundError wraps ErrFrameworkNotFound with the framework name.
func FrameworkNotFoundError(name string) error {
	return fmt.Errorf("%w: name=%q", ErrFrameworkNotFound, name)
}
