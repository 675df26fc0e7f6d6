package compliance

import (
	"context"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// ControlRepository persists controls and their finding links.
type ControlRepository interface {
	// CreateIfAbsent inserts the control unless one with the same name
	// exists, and returns the stored control either way.
	CreateIfAbsent(ctx context.Context, c *Control) (*Control, error)

	GetByName(ctx context.Context, name string) (*Control, error)

	// LinkFinding records that a finding maps to a control. Linking an
	// already linked pair is a no-op.
	LinkFinding(ctx context.Context, findingID, controlID shared.ID) error

	// ListByFinding returns the controls linked to a finding, ordered by
	// name.
	ListByFinding(ctx context.Context, findingID shared.ID) ([]*Control, error)
}

// FrameworkRepository persists frameworks and their control citations.
type FrameworkRepository interface {
	CreateIfAbsent(ctx context.Context, f *Framework) (*Framework, error)
	GetByName(ctx context.Context, name string) (*Framework, error)

	// LinkControl records that a framework cites a control under the given
	// reference (for example "CM-3"). Linking an already linked pair is a
	// no-op.
	LinkControl(ctx context.Context, frameworkID, controlID shared.ID, citation string) error
}
