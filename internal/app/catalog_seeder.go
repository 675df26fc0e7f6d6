package app

import (
	"context"
	"fmt"

	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

// SeedResult counts the catalog entries that are present after seeding.
type SeedResult struct {
	Frameworks int `json:"frameworks" yaml:"frameworks"`
	Controls   int `json:"controls" yaml:"controls"`
	Citations  int `json:"citations" yaml:"citations"`
}

// CatalogSeeder writes the compliance catalog into the store.
type CatalogSeeder struct {
	runner  uow.Runner
	catalog *compliance.Catalog
	logger  *logger.Logger
}

// NewCatalogSeeder creates a new CatalogSeeder.
func NewCatalogSeeder(runner uow.Runner, catalog *compliance.Catalog, log *logger.Logger) *CatalogSeeder {
	return &CatalogSeeder{
		runner:  runner,
		catalog: catalog,
		logger:  log.With("service", "catalog_seeder"),
	}
}

// Seed inserts the catalog's frameworks, controls and citations where they
// are absent. Existing rows are left untouched, so seeding is repeatable.
func (s *CatalogSeeder) Seed(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}

	err := s.runner.Do(ctx, func(ctx context.Context, u uow.UnitOfWork) error {
		*result = SeedResult{}

		frameworkIDs := make(map[string]shared.ID)
		for _, spec := range s.catalog.Frameworks() {
			fw, err := compliance.NewFramework(spec.Name, spec.Version)
			if err != nil {
				return err
			}
			stored, err := u.Frameworks().CreateIfAbsent(ctx, fw)
			if err != nil {
				return fmt.Errorf("seed framework %q: %w", spec.Name, err)
			}
			frameworkIDs[spec.Name] = stored.ID()
			result.Frameworks++
		}

		for _, spec := range s.catalog.Controls() {
			ctl, err := compliance.NewControl(spec.Name, spec.CIADomain)
			if err != nil {
				return err
			}
			stored, err := u.Controls().CreateIfAbsent(ctx, ctl)
			if err != nil {
				return fmt.Errorf("seed control %q: %w", spec.Name, err)
			}
			result.Controls++

			for _, cit := range spec.Citations {
				fwID, ok := frameworkIDs[cit.Framework]
				if !ok {
					return compliance.FrameworkNotFoundError(cit.Framework)
				}
				if err := u.Frameworks().LinkControl(ctx, fwID, stored.ID(), cit.Reference); err != nil {
					return fmt.Errorf("seed citation %s %s: %w", cit.Framework, cit.Reference, err)
				}
				result.Citations++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("compliance catalog seeded",
		"frameworks", result.Frameworks,
		"controls", result.Controls,
		"citations", result.Citations,
	)
	return result, nil
}
