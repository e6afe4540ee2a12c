package logic

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidResult is returned for map scores that cannot come from a finished map
var ErrInvalidResult = errors.New("invalid map result")

// Canonical rating constants
const (
	DefaultInitialRating  = 1000.0
	DefaultKFactor        = 74.0
	DefaultRatingDivisor  = 2000.0
	DefaultMarginConstant = 5.95
)

// RatingParams configures the per-map Elo update.
// One scalar rating is kept per (team, map); there is no global component.
type RatingParams struct {
	Initial        float64
	KFactor        float64
	Divisor        float64
	MarginConstant float64
}

func DefaultRatingParams() RatingParams {
	return RatingParams{
		Initial:        DefaultInitialRating,
		KFactor:        DefaultKFactor,
		Divisor:        DefaultRatingDivisor,
		MarginConstant: DefaultMarginConstant,
	}
}

// ExpectedScore is the probability that a side rated a beats a side rated b
func (p RatingParams) ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/p.Divisor))
}

// MarginFactor scales the update by round differential
func (p RatingParams) MarginFactor(scoreWinner, scoreLoser int) float64 {
	diff := math.Max(float64(scoreWinner-scoreLoser), 0)
	return math.Log(p.MarginConstant * math.Sqrt(diff+1))
}

// Update returns the new winner and loser ratings. The update is zero-sum:
// the loser drops by exactly what the winner gains.
func (p RatingParams) Update(ratingWinner, ratingLoser float64, scoreWinner, scoreLoser int) (float64, float64, error) {
	if scoreWinner < 0 || scoreLoser < 0 {
		return ratingWinner, ratingLoser, fmt.Errorf("%w: negative score %d-%d", ErrInvalidResult, scoreWinner, scoreLoser)
	}
	if scoreWinner <= scoreLoser {
		return ratingWinner, ratingLoser, fmt.Errorf("%w: winner score %d not above loser score %d", ErrInvalidResult, scoreWinner, scoreLoser)
	}

	expected := p.ExpectedScore(ratingWinner, ratingLoser)
	delta := p.KFactor * p.MarginFactor(scoreWinner, scoreLoser) * (1 - expected)

	return ratingWinner + delta, ratingLoser - delta, nil
}
