package risk

import (
	"fmt"
	"time"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Risk is the scored exposure of exactly one finding.
type Risk struct {
	id            shared.ID
	findingID     shared.ID
	inherentScore float64
	residualScore *float64
	rating        Rating
	cia           CIA
	createdAt     time.Time
}

// NewRisk creates the risk record for a finding. The rating must agree
// with the inherent score.
func NewRisk(findingID shared.ID, a Assessment) (*Risk, error) {
	if findingID.IsZero() {
		return nil, fmt.Errorf("%w: finding id is required", shared.ErrValidation)
	}
	if want := RatingForScore(a.InherentScore); a.Rating != want {
		return nil, fmt.Errorf("%w: rating %q does not match score %.1f (want %q)",
			shared.ErrValidation, a.Rating, a.InherentScore, want)
	}

	return &Risk{
		id:            shared.NewID(),
		findingID:     findingID,
		inherentScore: a.InherentScore,
		rating:        a.Rating,
		cia:           a.CIA,
		createdAt:     time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds a Risk from persisted state.
func Reconstitute(
	id, findingID shared.ID,
	inherentScore float64,
	residualScore *float64,
	rating Rating,
	cia CIA,
	createdAt time.Time,
) *Risk {
	return &Risk{
		id:            id,
		findingID:     findingID,
		inherentScore: inherentScore,
		residualScore: residualScore,
		rating:        rating,
		cia:           cia,
		createdAt:     createdAt,
	}
}

func (r *Risk) ID() shared.ID { return r.id }
func (r *Risk) FindingID() shared.ID { return r.findingID }
func (r *Risk) InherentScore() float64 { return r.inherentScore }
func (r *Risk) ResidualScore() *float64 { return r.residualScore }
func (r *Risk) Rating() Rating { return r.rating }
func (r *Risk) CIA() CIA { return r.cia }
func (r *Risk) CreatedAt() time.Time { return r.createdAt }
