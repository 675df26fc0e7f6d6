package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/grcmmap/api/internal/app"
	"github.com/grcmmap/api/internal/metrics"
	"github.com/grcmmap/api/pkg/domain/asset"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
	"github.com/grcmmap/api/pkg/validator"
)

var tracer = otel.Tracer("github.com/grcmmap/api/internal/app/ingest")

// Service turns uploaded scanner exports into assets, findings, risks and
// control links.
type Service struct {
	runner    uow.Runner
	mapper    *app.ComplianceMapper
	validator *validator.Validator
	archiver  Archiver

	logger *logger.Logger
}

// NewService creates a new ingest service.
func NewService(runner uow.Runner, mapper *app.ComplianceMapper, v *validator.Validator, log *logger.Logger) *Service {
	return &Service{
		runner:    runner,
		mapper:    mapper,
		validator: v,
		logger:    log.With("service", "ingest"),
	}
}

// SetArchiver enables archival of raw uploads.
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// rowOutcome is what one committed row produced.
type rowOutcome struct {
	findingID shared.ID
	controls  []*compliance.Control
}

// =============================================================================
// Main Ingestion Method
// =============================================================================

// Ingest processes every row of the upload in file order, one unit of work
// per row. Rows without a usable address are skipped and counted. A
// storage failure stops the upload and returns the error; rows committed
// before it stay committed.
func (s *Service) Ingest(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()

	if in.Body == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", ErrEmptyBody.Error(), shared.ErrValidation)
	}
	if err := s.validator.ValidateSourceName(in.Source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	ctx, span := tracer.Start(ctx, "ingest.Upload", trace.WithAttributes(
		attribute.String("ingest.source", in.Source),
	))
	defer span.End()

	log := s.logger.WithContext(ctx).With("source", in.Source)

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	result := &Result{
		Status:                StatusComplete,
		Source:                in.Source,
		MappedControlsPreview: []string{},
	}
	result.ArchiveKey = s.archive(ctx, log, in, data)

	rows, err := newRowReader(bytes.NewReader(data))
	if errors.Is(err, io.EOF) {
		metrics.IngestUploadsTotal.WithLabelValues(in.Source, metrics.StatusEmpty).Inc()
		return result, nil
	}
	if err != nil {
		s.fail(span, in.Source, err)
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			s.fail(span, in.Source, err)
			log.Warn("upload interrupted", "processed", result.Count, "error", err)
			return nil, err
		}

		raw, line, err := rows.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.fail(span, in.Source, err)
			log.Error("malformed csv row, stopping upload", "processed", result.Count, "error", err)
			return nil, err
		}

		n := app.Normalize(raw, in.Source)
		if err := s.validator.Validate(n); err != nil {
			result.Skipped++
			metrics.IngestRowsTotal.WithLabelValues(in.Source, metrics.OutcomeSkipped).Inc()
			log.Warn("skipping invalid row", "line", line, "error", err)
			continue
		}

		out, err := s.processRow(ctx, n, line)
		if err != nil {
			metrics.IngestRowsTotal.WithLabelValues(in.Source, metrics.OutcomeFailed).Inc()
			s.fail(span, in.Source, err)
			log.Error("row failed, stopping upload",
				"line", line,
				"processed", result.Count,
				"error", err,
			)
			return nil, fmt.Errorf("row at line %d: %w", line, err)
		}

		metrics.IngestRowsTotal.WithLabelValues(in.Source, metrics.OutcomeCreated).Inc()
		metrics.FindingsBySeverityTotal.WithLabelValues(n.Severity.String()).Inc()

		if result.Count == 0 {
			id := out.findingID
			result.PreviewFindingID = &id
			for _, c := range out.controls {
				result.MappedControlsPreview = append(result.MappedControlsPreview, c.Name())
			}
		}
		result.Count++
	}

	span.SetAttributes(
		attribute.Int("ingest.count", result.Count),
		attribute.Int("ingest.skipped", result.Skipped),
	)
	metrics.IngestUploadsTotal.WithLabelValues(in.Source, metrics.StatusSuccess).Inc()
	metrics.IngestDuration.WithLabelValues(in.Source).Observe(time.Since(start).Seconds())

	log.Info("upload ingested",
		"count", result.Count,
		"skipped", result.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// processRow writes one normalized row in its own unit of work.
func (s *Service) processRow(ctx context.Context, n finding.Normalized, line int) (*rowOutcome, error) {
	ctx, span := tracer.Start(ctx, "ingest.Row", trace.WithAttributes(
		attribute.Int("ingest.line", line),
		attribute.String("asset.ip", n.IPAddress),
	))
	defer span.End()

	var out rowOutcome
	err := s.runner.Do(ctx, func(ctx context.Context, u uow.UnitOfWork) error {
		a, err := s.getOrCreateAsset(ctx, u, n)
		if err != nil {
			return err
		}

		f, err := finding.NewFinding(a.ID(), n)
		if err != nil {
			return err
		}
		if err := u.Findings().Create(ctx, f); err != nil {
			return fmt.Errorf("create finding: %w", err)
		}

		r, err := risk.NewRisk(f.ID(), app.AssessRisk(f.Severity()))
		if err != nil {
			return err
		}
		if err := u.Risks().Create(ctx, r); err != nil {
			return fmt.Errorf("create risk: %w", err)
		}

		controls, err := s.mapper.Map(ctx, u, f.ID(), f.Title())
		if err != nil {
			return err
		}

		out = rowOutcome{findingID: f.ID(), controls: controls}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "row failed")
		return nil, err
	}

	for _, c := range out.controls {
		metrics.ControlLinksTotal.WithLabelValues(c.Name()).Inc()
	}
	return &out, nil
}

// getOrCreateAsset returns the asset at the row's address, creating it on
// first sighting. When a concurrent upload wins the insert, the winner is
// re-read and used.
func (s *Service) getOrCreateAsset(ctx context.Context, u uow.UnitOfWork, n finding.Normalized) (*asset.Asset, error) {
	existing, err := u.Assets().GetByIP(ctx, n.IPAddress)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}

	a, err := asset.NewAsset(n.AssetName, n.IPAddress, asset.TypeServer)
	if err != nil {
		return nil, err
	}

	err = u.Assets().Create(ctx, a)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, asset.ErrAssetAlreadyExists):
		metrics.AssetRaceRetriesTotal.Inc()
		s.logger.Debug("asset created concurrently, re-reading", "ip", n.IPAddress)
		winner, err := u.Assets().GetByIP(ctx, n.IPAddress)
		if err != nil {
			return nil, fmt.Errorf("re-read asset after conflict: %w", err)
		}
		return winner, nil
	default:
		return nil, fmt.Errorf("create asset: %w", err)
	}
}

// archive stores the raw upload when an archiver is configured. Failures
// are logged and never block ingestion.
func (s *Service) archive(ctx context.Context, log *logger.Logger, in Input, data []byte) string {
	if s.archiver == nil {
		return ""
	}
	key, err := s.archiver.Archive(ctx, in.Source, in.Filename, data)
	if err != nil {
		metrics.ArchiveFailuresTotal.Inc()
		log.Warn("failed to archive raw upload", "filename", in.Filename, "error", err)
		return ""
	}
	log.Debug("raw upload archived", "key", key, "bytes", len(data))
	return key
}

func (s *Service) fail(span trace.Span, source string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.IngestUploadsTotal.WithLabelValues(source, metrics.StatusFailed).Inc()
}
