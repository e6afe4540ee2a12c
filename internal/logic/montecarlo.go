package logic

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapelo/forecast-api/internal/models"
)

var (
	ErrInvalidTrials    = errors.New("trial count must be a positive integer")
	ErrObservedMismatch = errors.New("observed winner did not play in match")
)

var (
	trialsRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapelo_simulation_trials_total",
		Help: "Total number of tournament trials simulated",
	})

	simulationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapelo_simulation_duration_seconds",
		Help:    "Duration of Monte-Carlo runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})
)

// placementBuckets are the cumulative placement cut-offs, matching
// championships, finalist, top3, top4, top6, top8 and top12.
var placementBuckets = [...]int{1, 2, 3, 4, 6, 8, 12}

const bucketCount = len(placementBuckets)

// Accumulator counts, per team, the trials finishing inside each placement bucket.
// Merging is a plain vector sum.
type Accumulator struct {
	Trials int
	Counts [][bucketCount]int64
}

func NewAccumulator(teams int) *Accumulator {
	return &Accumulator{Counts: make([][bucketCount]int64, teams)}
}

// Add records one trial's final placements (0 means unplaced)
func (a *Accumulator) Add(placements []int) {
	a.Trials++
	for team, place := range placements {
		if place <= 0 {
			continue
		}
		for b, cut := range placementBuckets {
			if place <= cut {
				a.Counts[team][b]++
			}
		}
	}
}

func (a *Accumulator) Merge(other *Accumulator) {
	a.Trials += other.Trials
	for team := range a.Counts {
		for b := range a.Counts[team] {
			a.Counts[team][b] += other.Counts[team][b]
		}
	}
}

// Odds converts counts to percentages, ordered by title odds then seed
func (a *Accumulator) Odds(teams []models.Team) []models.TeamOdds {
	pct := func(c int64) float64 {
		if a.Trials == 0 {
			return 0
		}
		return float64(c) / float64(a.Trials) * 100
	}

	out := make([]models.TeamOdds, len(teams))
	for i, t := range teams {
		c := a.Counts[i]
		out[i] = models.TeamOdds{
			TeamID:        t.ID,
			Team:          t.Name,
			Championships: pct(c[0]),
			Finalist:      pct(c[1]),
			Top3:          pct(c[2]),
			Top4:          pct(c[3]),
			Top6:          pct(c[4]),
			Top8:          pct(c[5]),
			Top12:         pct(c[6]),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Championships > out[j].Championships
	})
	return out
}

// SimulationInput is everything a run needs. Ratings holds one slice per team,
// aligned with MapPool.
type SimulationInput struct {
	Teams    []models.Team
	Bracket  *models.Bracket
	MapPool  []string
	Ratings  [][]float64
	Observed []models.ObservedResult
}

// MonteCarloEngine plays a bracket many times. Trial t always draws from
// rand.NewPCG(seed, t), so results do not depend on worker count.
type MonteCarloEngine struct {
	veto    *VetoProtocol
	workers int
	logger  *zap.SugaredLogger
}

func NewMonteCarloEngine(veto *VetoProtocol, workers int, logger *zap.SugaredLogger) *MonteCarloEngine {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MonteCarloEngine{veto: veto, workers: workers, logger: logger}
}

type preparedRun struct {
	bracket  *compiledBracket
	observed []int
	in       SimulationInput
}

func (e *MonteCarloEngine) prepare(in SimulationInput) (*preparedRun, error) {
	if len(in.Ratings) != len(in.Teams) {
		return nil, fmt.Errorf("ratings for %d teams, roster has %d", len(in.Ratings), len(in.Teams))
	}
	for i, r := range in.Ratings {
		if len(r) != len(in.MapPool) {
			return nil, fmt.Errorf("team %d has %d map ratings, pool has %d", in.Teams[i].ID, len(r), len(in.MapPool))
		}
	}

	cb, err := compileBracket(in.Bracket, len(in.Teams))
	if err != nil {
		return nil, err
	}
	for _, m := range cb.matches {
		if err := CheckPool(m.formatName, len(in.MapPool)); err != nil {
			return nil, fmt.Errorf("match %s: %w", m.id, err)
		}
	}

	teamIdx := make(map[int64]int, len(in.Teams))
	for i, t := range in.Teams {
		teamIdx[t.ID] = i
	}
	observed := make([]int, len(cb.matches))
	for i := range observed {
		observed[i] = -1
	}
	for _, o := range in.Observed {
		mi, ok := cb.index[o.MatchID]
		if !ok {
			return nil, fmt.Errorf("%w: observed result for unknown match %s", ErrInvalidBracket, o.MatchID)
		}
		ti, ok := teamIdx[o.WinnerID]
		if !ok {
			return nil, fmt.Errorf("%w: observed winner %d is not in the tournament", ErrInvalidBracket, o.WinnerID)
		}
		observed[mi] = ti
	}
	// an observed match must be fed only by observed matches
	for i, m := range cb.matches {
		if observed[i] < 0 {
			continue
		}
		for _, s := range []compiledSlot{m.a, m.b} {
			if s.from >= 0 && observed[s.from] < 0 {
				return nil, fmt.Errorf("%w: match %s is observed but feeder %s is not", ErrInvalidBracket, m.id, cb.matches[s.from].id)
			}
		}
	}

	return &preparedRun{bracket: cb, observed: observed, in: in}, nil
}

// Run simulates trials and returns the merged accumulator. Cancellation is
// honoured between trials.
func (e *MonteCarloEngine) Run(ctx context.Context, trials int, seed uint64, in SimulationInput) (*Accumulator, error) {
	if trials <= 0 {
		return nil, ErrInvalidTrials
	}
	run, err := e.prepare(in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	workers := min(e.workers, trials)
	parts := make([]*Accumulator, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		from := trials * w / workers
		to := trials * (w + 1) / workers
		g.Go(func() error {
			acc, err := e.runRange(gctx, run, seed, from, to)
			parts[w] = acc
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := NewAccumulator(len(in.Teams))
	for _, p := range parts {
		total.Merge(p)
	}

	trialsRun.Add(float64(trials))
	simulationDuration.Observe(time.Since(start).Seconds())
	e.logger.Infow("Simulation finished",
		"trials", trials,
		"teams", len(in.Teams),
		"matches", len(run.bracket.matches),
		"workers", workers,
		"duration", time.Since(start),
	)
	return total, nil
}

func (e *MonteCarloEngine) runRange(ctx context.Context, run *preparedRun, seed uint64, from, to int) (*Accumulator, error) {
	acc := NewAccumulator(len(run.in.Teams))
	placements := make([]int, len(run.in.Teams))
	winners := make([]int, len(run.bracket.matches))
	losers := make([]int, len(run.bracket.matches))

	for t := from; t < to; t++ {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		rng := rand.New(rand.NewPCG(seed, uint64(t)))
		if err := e.playTrial(rng, run, winners, losers, placements); err != nil {
			return acc, err
		}
		acc.Add(placements)
	}
	return acc, nil
}

// playTrial resolves every bracket match in order and fills placements
func (e *MonteCarloEngine) playTrial(rng *rand.Rand, run *preparedRun, winners, losers, placements []int) error {
	for i := range placements {
		placements[i] = 0
	}

	resolve := func(s compiledSlot) int {
		if s.from < 0 {
			return s.seed
		}
		if s.loser {
			return losers[s.from]
		}
		return winners[s.from]
	}

	for i, m := range run.bracket.matches {
		a, b := resolve(m.a), resolve(m.b)

		var winner, loser int
		if obs := run.observed[i]; obs >= 0 {
			switch obs {
			case a:
				winner, loser = a, b
			case b:
				winner, loser = b, a
			default:
				return fmt.Errorf("%w: %s winner %d", ErrObservedMismatch, m.id, run.in.Teams[obs].ID)
			}
		} else if e.veto.playSeries(run.in.Ratings[a], run.in.Ratings[b], m.format, rng) == SideA {
			winner, loser = a, b
		} else {
			winner, loser = b, a
		}

		winners[i], losers[i] = winner, loser
		if m.winnerPlace > 0 {
			placements[winner] = m.winnerPlace
		}
		if m.loserPlace > 0 {
			placements[loser] = m.loserPlace
		}
	}
	return nil
}
