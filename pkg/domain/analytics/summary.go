// Package analytics holds the read models served by the dashboard and
// the executive report.
package analytics

import "context"

// TrendDateLayout is the layout of TrendPoint.Date.
const TrendDateLayout = "2006-01-02"

// RatingCount is the number of risks carrying a rating.
type RatingCount struct {
	Rating string `json:"rating" yaml:"rating"`
	Count  int64  `json:"count" yaml:"count"`
}

// ControlCount is the number of findings linked to a control.
type ControlCount struct {
	ControlName  string `json:"control_name" yaml:"control_name"`
	FindingCount int64  `json:"finding_count" yaml:"finding_count"`
}

// TrendPoint is the number of findings ingested on a calendar day.
type TrendPoint struct {
	Date  string `json:"date" yaml:"date"`
	Count int64  `json:"count" yaml:"count"`
}

// Summary combines the three dashboard aggregates. Groups with no data
// are absent rather than zero.
type Summary struct {
	RisksByRating   []RatingCount  `json:"risks_by_rating" yaml:"risks_by_rating"`
	ControlMaturity []ControlCount `json:"control_maturity" yaml:"control_maturity"`
	FindingTrend    []TrendPoint   `json:"finding_trend" yaml:"finding_trend"`
}

// HasRisks reports whether any risk has been recorded.
func (s *Summary) HasRisks() bool {
	return s != nil && len(s.RisksByRating) > 0
}

// LatestTrendDate returns the most recent trend date, and false when there
// is no trend data.
func (s *Summary) LatestTrendDate() (string, bool) {
	if s == nil || len(s.FindingTrend) == 0 {
		return "", false
	}
	return s.FindingTrend[len(s.FindingTrend)-1].Date, true
}

// Repository runs the grouped read queries.
type Repository interface {
	RisksByRating(ctx context.Context) ([]RatingCount, error)
	ControlMaturity(ctx context.Context) ([]ControlCount, error)
	// FindingTrend returns points in ascending date order.
	FindingTrend(ctx context.Context) ([]TrendPoint, error)
}
