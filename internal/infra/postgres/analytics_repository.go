package postgres

import (
	"context"
	"fmt"

	"github.com/grcmmap/api/pkg/domain/analytics"
)

// AnalyticsRepository implements analytics.Repository using PostgreSQL.
type AnalyticsRepository struct {
	db *DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// RisksByRating counts risks per rating, most severe first.
func (r *AnalyticsRepository) RisksByRating(ctx context.Context) ([]analytics.RatingCount, error) {
	query := `
		SELECT risk_rating, COUNT(id)
		FROM risks
		GROUP BY risk_rating
		ORDER BY CASE risk_rating
			WHEN 'Critical' THEN 0
			WHEN 'High' THEN 1
			WHEN 'Medium' THEN 2
			ELSE 3
		END
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query risks by rating: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.RatingCount, 0, 4)
	for rows.Next() {
		var rc analytics.RatingCount
		if err := rows.Scan(&rc.Rating, &rc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan rating count: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rating counts: %w", err)
	}
	return out, nil
}

// ControlMaturity counts linked findings per control. Controls without
// links are not listed.
func (r *AnalyticsRepository) ControlMaturity(ctx context.Context) ([]analytics.ControlCount, error) {
	query := `
		SELECT c.control_name, COUNT(l.finding_id)
		FROM controls c
		JOIN finding_control_links l ON l.control_id = c.id
		GROUP BY c.control_name
		ORDER BY COUNT(l.finding_id) DESC, c.control_name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query control maturity: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.ControlCount, 0)
	for rows.Next() {
		var cc analytics.ControlCount
		if err := rows.Scan(&cc.ControlName, &cc.FindingCount); err != nil {
			return nil, fmt.Errorf("failed to scan control count: %w", err)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate control counts: %w", err)
	}
	return out, nil
}

// FindingTrend counts findings per UTC ingestion day in ascending order.
func (r *AnalyticsRepository) FindingTrend(ctx context.Context) ([]analytics.TrendPoint, error) {
	query := `
		SELECT to_char((ingestion_date AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day, COUNT(id)
		FROM findings
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query finding trend: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.TrendPoint, 0)
	for rows.Next() {
		var tp analytics.TrendPoint
		if err := rows.Scan(&tp.Date, &tp.Count); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trend points: %w", err)
	}
	return out, nil
}
