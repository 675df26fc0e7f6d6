// Package uow defines the unit of work that scopes a set of repository
// calls to one store transaction.
package uow

import (
	"context"

	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
)

// UnitOfWork exposes repositories that all write through the same
// transaction. It is only valid inside the Runner callback that created
// it.
type UnitOfWork interface {
	Assets() asset.Repository
	Findings() finding.Repository
	Risks() risk.Repository
	Controls() compliance.ControlRepository
	Frameworks() compliance.FrameworkRepository
}

// Runner opens a unit of work, runs fn, and commits when fn returns nil.
// Any error from fn rolls the unit of work back.
type Runner interface {
	Do(ctx context.Context, fn func(ctx context.Context, u UnitOfWork) error) error
}
