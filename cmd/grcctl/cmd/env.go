package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/internal/infra/postgres"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/logger"
)

// env is what a database-backed command runs with.
type env struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *postgres.DB
	tx      *postgres.TxManager
	catalog *compliance.Catalog
}

func (e *env) Close() error {
	return e.db.Close()
}

func newLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Format = "text"
	cfg.Output = os.Stderr
	cfg.Level = "warn"
	if flagVerbose {
		cfg.Level = "debug"
	}
	return logger.New(cfg)
}

func loadCatalog(cfg *config.Config) (*compliance.Catalog, error) {
	path := flagCatalog
	if path == "" && cfg != nil {
		path = cfg.Compliance.CatalogPath
	}
	if path == "" {
		return compliance.DefaultCatalog(), nil
	}
	catalog, err := compliance.LoadCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return catalog, nil
}

// openEnv connects to the database and makes sure the schema exists.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	db, err := postgres.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &env{
		cfg:     cfg,
		log:     newLogger(),
		db:      db,
		tx:      postgres.NewTxManager(db),
		catalog: catalog,
	}, nil
}

func (e *env) analytics() *app.AnalyticsService {
	return app.NewAnalyticsService(postgres.NewAnalyticsRepository(e.db), e.log)
}
