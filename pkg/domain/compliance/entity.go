package compliance

import (
	"fmt"
	"strings"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Control is a governance control that findings are mapped to.
type Control struct {
	id        shared.ID
	name      string
	ciaDomain string
}

// NewControl creates a control. ciaDomain is a free-form tag such as
// "Integrity, Availability".
func NewControl(name, ciaDomain string) (*Control, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: control name is required", shared.ErrValidation)
	}
	return &Control{id: shared.NewID(), name: name, ciaDomain: ciaDomain}, nil
}

// ReconstituteControl rebuilds a Control from persisted state.
func ReconstituteControl(id shared.ID, name, ciaDomain string) *Control {
	return &Control{id: id, name: name, ciaDomain: ciaDomain}
}

func (c *Control) ID() shared.ID { return c.id }
func (c *Control) Name() string { return c.name }
func (c *Control) CIADomain() string { return c.ciaDomain }

// Framework is a named, versioned standard that groups controls.
type Framework struct {
	id      shared.ID
	name    string
	version string
}

// NewFramework creates a framework.
func NewFramework(name, version string) (*Framework, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: framework name is required", shared.ErrValidation)
	}
	return &Framework{id: shared.NewID(), name: name, version: version}, nil
}

// ReconstituteFramework rebuilds a Framework from persisted state.
func ReconstituteFramework(id shared.ID, name, version string) *Framework {
	return &Framework{id: id, name: name, version: version}
}

func (f *Framework) ID() shared.ID { return f.id }
func (f *Framework) Name() string { return f.name }
func (f *Framework) Version() string { return f.version }
