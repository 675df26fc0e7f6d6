package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/logger"
)

// AnalyticsService aggregates persisted findings for the dashboard and the
// executive report.
type AnalyticsService struct {
	repo   analytics.Repository
	logger *logger.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(repo analytics.Repository, log *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:   repo,
		logger: log.With("service", "analytics"),
	}
}

// Summary runs the three dashboard aggregates concurrently. Empty groups
// come back as empty slices, never nil.
func (s *AnalyticsService) Summary(ctx context.Context) (*analytics.Summary, error) {
	var (
		byRating []analytics.RatingCount
		maturity []analytics.ControlCount
		trend    []analytics.TrendPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.RisksByRating(gctx)
		if err != nil {
			return fmt.Errorf("risks by rating: %w", err)
		}
		byRating = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ControlMaturity(gctx)
		if err != nil {
			return fmt.Errorf("control maturity: %w", err)
		}
		maturity = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.FindingTrend(gctx)
		if err != nil {
			return fmt.Errorf("finding trend: %w", err)
		}
		trend = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to aggregate dashboard summary", "error", err)
		return nil, err
	}

	if byRating == nil {
		byRating = []analytics.RatingCount{}
	}
	if maturity == nil {
		maturity = []analytics.ControlCount{}
	}
	if trend == nil {
		trend = []analytics.TrendPoint{}
	}

	return &analytics.Summary{
		RisksByRating:   byRating,
		ControlMaturity: maturity,
		FindingTrend:    trend,
	}, nil
}

// ComplianceStatus returns the number of findings linked to each control
// that has at least one link.
func (s *AnalyticsService) ComplianceStatus(ctx context.Context) ([]analytics.ControlCount, error) {
	rows, err := s.repo.ControlMaturity(ctx)
	if err != nil {
		s.logger.Error("failed to load compliance status", "error", err)
		return nil, fmt.Errorf("control maturity: %w", err)
	}
	if rows == nil {
		rows = []analytics.ControlCount{}
	}
	return rows, nil
}
