package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

// ComplianceMapper links findings to the controls whose keyword rules match
// the finding title.
type ComplianceMapper struct {
	catalog *compliance.Catalog
	logger  *logger.Logger
}

// NewComplianceMapper creates a mapper driven by catalog.
func NewComplianceMapper(catalog *compliance.Catalog, log *logger.Logger) *ComplianceMapper {
	return &ComplianceMapper{
		catalog: catalog,
		logger:  log.With("service", "compliance_mapper"),
	}
}

// Map links the finding to every matching control and returns all controls
// now linked to it, ordered by name. Mapping the same finding twice adds
// nothing. A rule naming a control that is not in the store is skipped.
func (m *ComplianceMapper) Map(ctx context.Context, u uow.UnitOfWork, findingID shared.ID, title string) ([]*compliance.Control, error) {
	ctx, span := tracer.Start(ctx, "compliance.Map", trace.WithAttributes(
		attribute.String("finding.id", findingID.String()),
	))
	defer span.End()

	names := m.catalog.Match(title)
	span.SetAttributes(attribute.Int("compliance.matched_rules", len(names)))

	for _, name := range names {
		ctl, err := u.Controls().GetByName(ctx, name)
		if errors.Is(err, shared.ErrNotFound) {
			m.logger.Warn("control missing from store, skipping link",
				"control", name, "finding_id", findingID.String())
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "control lookup failed")
			return nil, fmt.Errorf("get control %q: %w", name, err)
		}
		if err := u.Controls().LinkFinding(ctx, findingID, ctl.ID()); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "link failed")
			return nil, fmt.Errorf("link finding to control %q: %w", name, err)
		}
	}

	linked, err := u.Controls().ListByFinding(ctx, findingID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list linked controls failed")
		return nil, fmt.Errorf("list linked controls: %w", err)
	}
	return linked, nil
}
