package risk

// Rating buckets an inherent score.
type Rating string

const (
	RatingLow      Rating = "Low"
	RatingMedium   Rating = "Medium"
	RatingHigh     Rating = "High"
	RatingCritical Rating = "Critical"
)

// Rating thresholds on the inherent score. Scores below MediumThreshold
// are Low.
const (
	CriticalThreshold = 21.0
	HighThreshold     = 13.0
	MediumThreshold   = 7.0
)

// IsValid reports whether r is a known rating.
func (r Rating) IsValid() bool {
	switch r {
	case RatingLow, RatingMedium, RatingHigh, RatingCritical:
		return true
	}
	return false
}

func (r Rating) String() string {
	return string(r)
}

// RatingForScore derives the rating of an inherent score.
func RatingForScore(score float64) Rating {
	switch {
	case score >= CriticalThreshold:
		return RatingCritical
	case score >= HighThreshold:
		return RatingHigh
	case score >= MediumThreshold:
		return RatingMedium
	default:
		return RatingLow
	}
}

// CIA holds the confidentiality, integrity and availability component
// scores of a risk.
type CIA struct {
	Confidentiality float64 `json:"cia_confidentiality"`
	Integrity       float64 `json:"cia_integrity"`
	Availability    float64 `json:"cia_availability"`
}

// Assessment is the output of scoring a finding, before it is persisted.
type Assessment struct {
	InherentScore float64 `json:"inherent_score"`
	Rating        Rating  `json:"risk_rating"`
	CIA
}
