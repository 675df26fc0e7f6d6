package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grcmmap/api/internal/testutil/memstore"
	"github.com/grcmmap/api/pkg/domain/analytics"
	"github.com/grcmmap/api/pkg/domain/compliance"
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
	"github.com/grcmmap/api/pkg/domain/shared"
	"github.com/grcmmap/api/pkg/domain/uow"
	"github.com/grcmmap/api/pkg/logger"
)

func addScoredFinding(store *memstore.Store, sev finding.Severity, at time.Time) {
	f := finding.Reconstitute(shared.NewID(), shared.NewID(), "t", "nessus", sev, finding.RawEvidence{}, at)
	a := AssessRisk(sev)
	r := risk.Reconstitute(shared.NewID(), f.ID(), a.InherentScore, nil, a.Rating, a.CIA, at)
	store.AddFindingAt(f, r)
}

func TestAnalyticsService_Summary_Empty(t *testing.T) {
	svc := NewAnalyticsService(memstore.New(), logger.NewNop())

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, summary.RisksByRating)
	assert.NotNil(t, summary.ControlMaturity)
	assert.NotNil(t, summary.FindingTrend)
	assert.False(t, summary.HasRisks())
}

func TestAnalyticsService_Summary(t *testing.T) {
	store := seededStore(t)
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)

	addScoredFinding(store, finding.SeverityCritical, day1)
	addScoredFinding(store, finding.SeverityLow, day1)
	addScoredFinding(store, finding.SeverityLow, day2)

	mapper := NewComplianceMapper(compliance.DefaultCatalog(), logger.NewNop())
	for _, title := range []string{"Outdated OpenSSH", "Admin access exposed"} {
		f := createFinding(t, store, "10.1.1.1", title, finding.SeverityMedium)
		err := store.Do(context.Background(), func(ctx context.Context, u uow.UnitOfWork) error {
			_, err := mapper.Map(ctx, u, f.ID(), title)
			return err
		})
		require.NoError(t, err)
	}

	summary, err := NewAnalyticsService(store, logger.NewNop()).Summary(context.Background())
	require.NoError(t, err)

	want := &analytics.Summary{
		RisksByRating: []analytics.RatingCount{
			{Rating: "Critical", Count: 1},
			{Rating: "Low", Count: 2},
		},
		ControlMaturity: []analytics.ControlCount{
			{ControlName: accessControl, FindingCount: 1},
			{ControlName: patchControl, FindingCount: 1},
		},
	}
	if diff := cmp.Diff(want.RisksByRating, summary.RisksByRating); diff != "" {
		t.Errorf("RisksByRating mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.ControlMaturity, summary.ControlMaturity); diff != "" {
		t.Errorf("ControlMaturity mismatch (-want +got):\n%s", diff)
	}

	require.GreaterOrEqual(t, len(summary.FindingTrend), 3)
	assert.Equal(t, analytics.TrendPoint{Date: "2024-03-01", Count: 2}, summary.FindingTrend[0])
	assert.Equal(t, analytics.TrendPoint{Date: "2024-03-04", Count: 1}, summary.FindingTrend[1])
	for i := 1; i < len(summary.FindingTrend); i++ {
		assert.Less(t, summary.FindingTrend[i-1].Date, summary.FindingTrend[i].Date)
	}
}

func TestAnalyticsService_Summary_Error(t *testing.T) {
	store := memstore.New()
	store.FailOn(memstore.OpAnalytics, 0, assert.AnError)

	_, err := NewAnalyticsService(store, logger.NewNop()).Summary(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalyticsService_ComplianceStatus(t *testing.T) {
	svc := NewAnalyticsService(memstore.New(), logger.NewNop())

	rows, err := svc.ComplianceStatus(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
