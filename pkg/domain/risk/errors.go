package risk

import (
	"fmt"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Domain-specific errors for risk.
var (
	ErrRiskNotFound      = fmt.Errorf("risk %w", shared.ErrNotFound)
	ErrRiskAlreadyExists = fmt.Errorf("risk %w", shared.ErrAlreadyExists)
)
