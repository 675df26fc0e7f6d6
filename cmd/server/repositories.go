package main

import (
	"github.com/grcmmap/api/internal/infra/postgres"
)

// Repositories holds the storage entry points. Writes go through the
// transaction manager so every repository shares one transaction.
type Repositories struct {
	Tx        *postgres.TxManager
	Analytics *postgres.AnalyticsRepository
}

// NewRepositories creates the repositories over one connection pool.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Tx:        postgres.NewTxManager(db),
		Analytics: postgres.NewAnalyticsRepository(db),
	}
}
