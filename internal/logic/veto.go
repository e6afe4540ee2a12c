package logic

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/mapelo/forecast-api/internal/models"
)

var (
	ErrUnknownFormat = errors.New("unknown series format")
	ErrPoolSize      = errors.New("map pool size does not match draft sequence")
)

// Side identifies a team in a series
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// VetoStep is one draft action and the side taking it
type VetoStep struct {
	Kind models.VetoKind
	Side Side
}

type draftFormat struct {
	steps        []VetoStep
	winsRequired int
}

var (
	banA    = VetoStep{models.VetoBan, SideA}
	banB    = VetoStep{models.VetoBan, SideB}
	pickA   = VetoStep{models.VetoPick, SideA}
	pickB   = VetoStep{models.VetoPick, SideB}
	decider = VetoStep{models.VetoDecider, SideNone}
)

// Draft sequences over a seven map pool. BO5_ADV gives side A two opening bans.
var draftFormats = map[models.SeriesFormat]draftFormat{
	models.FormatBO1: {
		steps:        []VetoStep{banA, banB, banA, banB, banA, banB, decider},
		winsRequired: 1,
	},
	models.FormatBO3: {
		steps:        []VetoStep{banA, banB, pickA, pickB, banA, banB, decider},
		winsRequired: 2,
	},
	models.FormatBO5: {
		steps:        []VetoStep{banA, banB, pickA, pickB, pickA, pickB, decider},
		winsRequired: 3,
	},
	models.FormatBO5Adv: {
		steps:        []VetoStep{banA, banA, pickA, pickB, pickA, pickB, decider},
		winsRequired: 3,
	},
}

func lookupFormat(format models.SeriesFormat) (draftFormat, error) {
	f, ok := draftFormats[format]
	if !ok {
		return draftFormat{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return f, nil
}

// DraftSequence returns the ordered draft steps for a format
func DraftSequence(format models.SeriesFormat) ([]VetoStep, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return nil, err
	}
	steps := make([]VetoStep, len(f.steps))
	copy(steps, f.steps)
	return steps, nil
}

// WinsRequired returns the map wins needed to take a series
func WinsRequired(format models.SeriesFormat) (int, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return 0, err
	}
	return f.winsRequired, nil
}

// CheckPool verifies a map pool can be drafted under a format
func CheckPool(format models.SeriesFormat, poolSize int) error {
	f, err := lookupFormat(format)
	if err != nil {
		return err
	}
	if len(f.steps) != poolSize {
		return fmt.Errorf("%w: %s needs %d maps, pool has %d", ErrPoolSize, format, len(f.steps), poolSize)
	}
	return nil
}

// MapOutcome is one simulated map
type MapOutcome struct {
	Map     string  `json:"map"`
	ProbA   float64 `json:"prob_a"`
	WinnerA bool    `json:"winner_a"`
}

// SeriesResult is one simulated series
type SeriesResult struct {
	Winner Side
	WinsA  int
	WinsB  int
	Maps   []MapOutcome
}

// VetoProtocol drafts and plays best-of-N series. Ratings are slices aligned
// with the map pool.
type VetoProtocol struct {
	params RatingParams
}

func NewVetoProtocol(params RatingParams) *VetoProtocol {
	return &VetoProtocol{params: params}
}

// MapWinProbability returns P(A wins a map) given both sides' map ratings
func (v *VetoProtocol) MapWinProbability(ratingA, ratingB float64) float64 {
	return v.params.ExpectedScore(ratingA, ratingB)
}

// SimulateDraft runs the format's draft with greedy policies: a ban removes
// the acting side's lowest-advantage map, a pick takes its highest-advantage
// map, and the decider is the last map left. Ties are broken with rng.
func (v *VetoProtocol) SimulateDraft(ratingsA, ratingsB []float64, pool []string, format models.SeriesFormat, rng *rand.Rand) ([]string, error) {
	f, err := v.prepare(ratingsA, ratingsB, pool, format)
	if err != nil {
		return nil, err
	}
	played := draft(ratingsA, ratingsB, f.steps, rng)
	maps := make([]string, len(played))
	for i, idx := range played {
		maps[i] = pool[idx]
	}
	return maps, nil
}

// SimulateSeries drafts the maps and plays them until one side reaches the required wins
func (v *VetoProtocol) SimulateSeries(ratingsA, ratingsB []float64, pool []string, format models.SeriesFormat, rng *rand.Rand) (SeriesResult, error) {
	f, err := v.prepare(ratingsA, ratingsB, pool, format)
	if err != nil {
		return SeriesResult{}, err
	}

	var res SeriesResult
	for _, idx := range draft(ratingsA, ratingsB, f.steps, rng) {
		p := v.MapWinProbability(ratingsA[idx], ratingsB[idx])
		winA := rng.Float64() < p
		if winA {
			res.WinsA++
		} else {
			res.WinsB++
		}
		res.Maps = append(res.Maps, MapOutcome{Map: pool[idx], ProbA: p, WinnerA: winA})

		if res.WinsA == f.winsRequired {
			res.Winner = SideA
			break
		}
		if res.WinsB == f.winsRequired {
			res.Winner = SideB
			break
		}
	}
	return res, nil
}

// playSeries is the allocation-light variant used by the Monte-Carlo engine
func (v *VetoProtocol) playSeries(ratingsA, ratingsB []float64, f draftFormat, rng *rand.Rand) Side {
	winsA, winsB := 0, 0
	for _, idx := range draft(ratingsA, ratingsB, f.steps, rng) {
		if rng.Float64() < v.MapWinProbability(ratingsA[idx], ratingsB[idx]) {
			winsA++
		} else {
			winsB++
		}
		if winsA == f.winsRequired {
			return SideA
		}
		if winsB == f.winsRequired {
			return SideB
		}
	}
	if winsA > winsB {
		return SideA
	}
	return SideB
}

func (v *VetoProtocol) prepare(ratingsA, ratingsB []float64, pool []string, format models.SeriesFormat) (draftFormat, error) {
	f, err := lookupFormat(format)
	if err != nil {
		return draftFormat{}, err
	}
	if len(pool) != len(f.steps) || len(ratingsA) != len(pool) || len(ratingsB) != len(pool) {
		return draftFormat{}, fmt.Errorf("%w: %s needs %d maps, pool has %d (ratings %d/%d)",
			ErrPoolSize, format, len(f.steps), len(pool), len(ratingsA), len(ratingsB))
	}
	return f, nil
}

// draft returns pool indices in play order: picks first, then the decider
func draft(ratingsA, ratingsB []float64, steps []VetoStep, rng *rand.Rand) []int {
	available := make([]bool, len(ratingsA))
	for i := range available {
		available[i] = true
	}

	played := make([]int, 0, len(steps))
	var decided []int
	for _, step := range steps {
		switch step.Kind {
		case models.VetoDecider:
			for i, ok := range available {
				if ok {
					available[i] = false
					decided = append(decided, i)
					break
				}
			}
		case models.VetoBan:
			idx := chooseMap(ratingsA, ratingsB, available, step.Side, false, rng)
			available[idx] = false
		case models.VetoPick:
			idx := chooseMap(ratingsA, ratingsB, available, step.Side, true, rng)
			available[idx] = false
			played = append(played, idx)
		}
	}
	return append(played, decided...)
}

// chooseMap returns the available map with the highest (pick) or lowest (ban)
// advantage for the acting side, choosing uniformly among ties.
func chooseMap(ratingsA, ratingsB []float64, available []bool, side Side, highest bool, rng *rand.Rand) int {
	best, ties := -1, 0
	var bestAdv float64
	for i, ok := range available {
		if !ok {
			continue
		}
		adv := ratingsA[i] - ratingsB[i]
		if side == SideB {
			adv = -adv
		}

		switch {
		case best < 0, highest && adv > bestAdv, !highest && adv < bestAdv:
			best, bestAdv, ties = i, adv, 1
		case adv == bestAdv:
			ties++
			if rng != nil && rng.IntN(ties) == 0 {
				best = i
			}
		}
	}
	return best
}
