package app

import (
	"github.com/grcmmap/api/pkg/domain/finding"
	"github.com/grcmmap/api/pkg/domain/risk"
)

var (
	likelihoodBySeverity = map[finding.Severity]float64{
		finding.SeverityCritical: 5,
		finding.SeverityHigh:     4,
		finding.SeverityMedium:   3,
		finding.SeverityLow:      1,
	}
	impactBySeverity = map[finding.Severity]float64{
		finding.SeverityCritical: 5,
		finding.SeverityHigh:     4,
		finding.SeverityMedium:   3,
		finding.SeverityLow:      2,
	}
)

const (
	defaultLikelihood = 1
	defaultImpact     = 2
)

// AssessRisk scores a finding's severity as likelihood x impact and rates
// the result. Unknown severities score as Low. The CIA components all
// carry the impact value.
func AssessRisk(sev finding.Severity) risk.Assessment {
	likelihood, ok := likelihoodBySeverity[sev]
	if !ok {
		likelihood = defaultLikelihood
	}
	impact, ok := impactBySeverity[sev]
	if !ok {
		impact = defaultImpact
	}

	score := likelihood * impact
	return risk.Assessment{
		InherentScore: score,
		Rating:        risk.RatingForScore(score),
		CIA: risk.CIA{
			Confidentiality: impact,
			Integrity:       impact,
			Availability:    impact,
		},
	}
}
