package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		severity   finding.Severity
		wantScore  float64
		wantRating risk.Rating
		wantImpact float64
	}{
		{finding.SeverityCritical, 25, risk.RatingCritical, 5},
		{finding.SeverityHigh, 16, risk.RatingHigh, 4},
		{finding.SeverityMedium, 9, risk.RatingMedium, 3},
		{finding.SeverityLow, 2, risk.RatingLow, 2},
		{finding.Severity("Unknown"), 2, risk.RatingLow, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			a := AssessRisk(tt.severity)

			assert.Equal(t, tt.wantScore, a.InherentScore)
			assert.Equal(t, tt.wantRating, a.Rating)
			assert.Equal(t, risk.CIA{
				Confidentiality: tt.wantImpact,
				Integrity:       tt.wantImpact,
				Availability:    tt.wantImpact,
			}, a.CIA)
			assert.Equal(t, risk.RatingForScore(a.InherentScore), a.Rating)
		})
	}
}
