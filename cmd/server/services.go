package main

import (
	"context"
	"fmt"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/app/ingest"
	"github.com/grcmmap/api/internal/app/report"
	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/internal/infra/archive"
	"github.com/grcmmap/api/internal/infra/llm"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/logger"
	"github.com/grcmmap/api/pkg/validator"
)

// ServiceDeps contains dependencies needed to create services.
type ServiceDeps struct {
	Config *config.Config
	Log    *logger.Logger
	Repos  *Repositories
}

// Services holds all service instances.
type Services struct {
	Seeder         *app.CatalogSeeder
	Ingest         *ingest.Service
	Analytics      *app.AnalyticsService
	FindingSummary *app.FindingSummaryService
	Report         *report.Renderer
}

// NewServices creates the application services.
func NewServices(ctx context.Context, deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log
	runner := deps.Repos.Tx

	catalog, err := loadCatalog(cfg.Compliance)
	if err != nil {
		return nil, err
	}

	ingestSvc := ingest.NewService(runner, app.NewComplianceMapper(catalog, log), validator.New(), log)
	if cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize upload archive: %w", err)
		}
		ingestSvc.SetArchiver(archiver)
		log.Info("upload archive enabled", "bucket", cfg.Archive.Bucket)
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	if provider == nil {
		log.Warn("no LLM key configured, finding summaries use canned text")
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load report templates: %w", err)
	}

	return &Services{
		Seeder:         app.NewCatalogSeeder(runner, catalog, log),
		Ingest:         ingestSvc,
		Analytics:      app.NewAnalyticsService(deps.Repos.Analytics, log),
		FindingSummary: app.NewFindingSummaryService(runner, provider, cfg.LLM.MaxTokens, log),
		Report:         renderer,
	}, nil
}

func loadCatalog(cfg config.ComplianceConfig) (*compliance.Catalog, error) {
	if cfg.CatalogPath == "" {
		return compliance.DefaultCatalog(), nil
	}
	catalog, err := compliance.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", cfg.CatalogPath, err)
	}
	return catalog, nil
}
