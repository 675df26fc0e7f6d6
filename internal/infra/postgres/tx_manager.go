package postgres

import (
	"context"
	"database/sql"

	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/uow"
)

// TxManager implements uow.Runner with one database transaction per unit
// of work.
type TxManager struct {
	db *DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

var _ uow.Runner = (*TxManager)(nil)

// Do runs fn in a transaction, committing when it returns nil.
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context, u uow.UnitOfWork) error) error {
	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(ctx, newTxUnit(tx))
	})
}

// txUnit binds every repository to one transaction.
type txUnit struct {
	assets     *AssetRepository
	findings   *FindingRepository
	risks      *RiskRepository
	controls   *ControlRepository
	frameworks *FrameworkRepository
}

func newTxUnit(tx *sql.Tx) *txUnit {
	return &txUnit{
		assets:     NewAssetRepository(tx),
		findings:   NewFindingRepository(tx),
		risks:      NewRiskRepository(tx),
		controls:   NewControlRepository(tx),
		frameworks: NewFrameworkRepository(tx),
	}
}

func (u *txUnit) Assets() asset.Repository { return u.assets }
func (u *txUnit) Findings() finding.Repository { return u.findings }
func (u *txUnit) Risks() risk.Repository { return u.risks }
func (u *txUnit) Controls() compliance.ControlRepository { return u.controls }
func (u *txUnit) Frameworks() compliance.FrameworkRepository { return u.frameworks }
