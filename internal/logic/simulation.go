package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
	"github.com/mapelo/forecast-api/internal/store"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrInvalidTournament  = errors.New("invalid tournament config")
	ErrNoActualResults    = errors.New("simulation has no actual results")
)

// SimulationService runs and stores tournament forecasts
type SimulationService interface {
	RunSimulation(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error)
	GetSimulation(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error)
	Backtest(ctx context.Context, id uuid.UUID) (*models.BacktestScore, error)
}

type SimulationServiceConfig struct {
	Ratings     RatingStore
	Artifacts   ArtifactStore
	Tournaments TournamentProvider
	Seasons     *SeasonManager
	Cache       SnapshotCache
	Engine      *MonteCarloEngine
	Params      RatingParams
	DefaultSeed uint64
	MaxTrials   int
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

type simulationService struct {
	ratings     RatingStore
	artifacts   ArtifactStore
	tournaments TournamentProvider
	seasons     *SeasonManager
	cache       SnapshotCache
	engine      *MonteCarloEngine
	params      RatingParams
	defaultSeed uint64
	maxTrials   int
	logger      *zap.SugaredLogger
	now         func() time.Time
}

func NewSimulationService(cfg SimulationServiceConfig) SimulationService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &simulationService{
		ratings:     cfg.Ratings,
		artifacts:   cfg.Artifacts,
		tournaments: cfg.Tournaments,
		seasons:     cfg.Seasons,
		cache:       cfg.Cache,
		engine:      cfg.Engine,
		params:      cfg.Params,
		defaultSeed: cfg.DefaultSeed,
		maxTrials:   cfg.MaxTrials,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

func (s *simulationService) RunSimulation(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error) {
	if req.Trials <= 0 || (s.maxTrials > 0 && req.Trials > s.maxTrials) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTrials, req.Trials)
	}

	cfg := req.Config
	if cfg == nil {
		var err error
		cfg, err = s.tournaments.Tournament(ctx, req.TournamentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, req.TournamentID)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := ValidateTournament(cfg); err != nil {
		return nil, err
	}

	bracket, err := BuildBracket(cfg.Bracket, len(cfg.Teams))
	if err != nil {
		return nil, err
	}

	table, missing, asOf, err := s.loadRatings(ctx, cfg)
	if err != nil {
		return nil, err
	}
	for _, m := range missing {
		s.logger.Warnw("Missing rating, using default", "tournament", cfg.ID, "team", m.TeamID, "map", m.MapName)
	}

	seed := s.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	acc, err := s.engine.Run(ctx, req.Trials, seed, SimulationInput{
		Teams:    cfg.Teams,
		Bracket:  bracket,
		MapPool:  cfg.MapPool,
		Ratings:  table,
		Observed: cfg.Observed,
	})
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	artifact := &models.SimulationArtifact{
		ID:                 id,
		TournamentID:       cfg.ID,
		Name:               cfg.Name,
		SimulatedAt:        s.now().UTC(),
		RatingSnapshotDate: asOf,
		NumTrials:          req.Trials,
		Seed:               seed,
		Results:            acc.Odds(cfg.Teams),
		MissingRatings:     missing,
		ActualResults:      cfg.Actual,
	}
	if err := s.artifacts.SaveArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("save simulation: %w", err)
	}

	s.logger.Infow("Simulation stored",
		"id", artifact.ID,
		"tournament", cfg.ID,
		"trials", req.Trials,
		"seed", seed,
		"missingRatings", len(missing),
	)
	return artifact, nil
}

func (s *simulationService) GetSimulation(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error) {
	return s.artifacts.Artifact(ctx, id)
}

func (s *simulationService) Backtest(ctx context.Context, id uuid.UUID) (*models.BacktestScore, error) {
	artifact, err := s.artifacts.Artifact(ctx, id)
	if err != nil {
		return nil, err
	}
	return ScoreBacktest(artifact)
}

// ValidateTournament checks roster and pool before any bracket work
func ValidateTournament(cfg *models.TournamentConfig) error {
	if len(cfg.Teams) < 2 {
		return fmt.Errorf("%w: need at least two teams", ErrInvalidTournament)
	}
	if len(cfg.MapPool) == 0 {
		return fmt.Errorf("%w: empty map pool", ErrInvalidTournament)
	}
	seen := make(map[int64]bool, len(cfg.Teams))
	for _, t := range cfg.Teams {
		if seen[t.ID] {
			return fmt.Errorf("%w: team %d listed twice", ErrInvalidTournament, t.ID)
		}
		seen[t.ID] = true
	}
	maps := make(map[string]bool, len(cfg.MapPool))
	for _, m := range cfg.MapPool {
		if maps[m] {
			return fmt.Errorf("%w: map %s listed twice", ErrInvalidTournament, m)
		}
		maps[m] = true
	}
	return nil
}

// loadRatings builds the per-team rating table aligned with the map pool.
// Tournaments that have already started use ratings as of their start date;
// upcoming ones use the active season's current snapshot.
func (s *simulationService) loadRatings(ctx context.Context, cfg *models.TournamentConfig) ([][]float64, []models.MissingRating, time.Time, error) {
	lookup, asOf, err := s.ratingLookup(ctx, cfg)
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	var missing []models.MissingRating
	table := make([][]float64, len(cfg.Teams))
	for i, t := range cfg.Teams {
		table[i] = make([]float64, len(cfg.MapPool))
		for j, mapName := range cfg.MapPool {
			r, ok, err := lookup(ctx, t.ID, mapName)
			if err != nil {
				return nil, nil, time.Time{}, err
			}
			if !ok {
				r = s.params.Initial
				missing = append(missing, models.MissingRating{TeamID: t.ID, MapName: mapName})
			}
			table[i][j] = r
		}
	}
	return table, missing, asOf, nil
}

type ratingLookupFunc func(ctx context.Context, teamID int64, mapName string) (float64, bool, error)

func (s *simulationService) ratingLookup(ctx context.Context, cfg *models.TournamentConfig) (ratingLookupFunc, time.Time, error) {
	now := s.now().UTC()
	if !cfg.StartDate.IsZero() && cfg.StartDate.Before(now) {
		at := cfg.StartDate.UTC()
		boundary := models.SeasonStart(at.Year())
		return func(ctx context.Context, teamID int64, mapName string) (float64, bool, error) {
			rec, err := s.ratings.LatestRating(ctx, teamID, mapName, at, boundary)
			if err != nil || rec == nil {
				return 0, false, err
			}
			return rec.Rating, true, nil
		}, at, nil
	}

	season, err := s.seasons.EnsureActive(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	rows, err := s.snapshot(ctx, season.ID)
	if err != nil {
		return nil, time.Time{}, err
	}

	asOf := season.StartDate
	index := make(map[teamMap]float64, len(rows))
	for _, r := range rows {
		index[teamMap{r.TeamID, r.MapName}] = r.Rating
		if r.RatedAt.After(asOf) {
			asOf = r.RatedAt
		}
	}
	return func(_ context.Context, teamID int64, mapName string) (float64, bool, error) {
		r, ok := index[teamMap{teamID, mapName}]
		return r, ok, nil
	}, asOf, nil
}

// snapshot reads the season snapshot through the cache
func (s *simulationService) snapshot(ctx context.Context, seasonID int64) ([]models.CurrentRating, error) {
	if s.cache != nil {
		rows, ok, err := s.cache.Get(ctx, seasonID)
		if err != nil {
			s.logger.Warnw("Snapshot cache read failed", "season", seasonID, "error", err)
		} else if ok {
			return rows, nil
		}
	}

	rows, err := s.ratings.Snapshot(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, seasonID, rows); err != nil {
			s.logger.Warnw("Snapshot cache write failed", "season", seasonID, "error", err)
		}
	}
	return rows, nil
}

// ScoreBacktest compares a stored forecast with the recorded outcome
func ScoreBacktest(a *models.SimulationArtifact) (*models.BacktestScore, error) {
	if a.ActualResults == nil {
		return nil, ErrNoActualResults
	}
	actual := a.ActualResults
	score := &models.BacktestScore{TournamentID: a.TournamentID}

	var brier float64
	for _, r := range a.Results {
		p := r.Championships / 100
		outcome := 0.0
		if r.TeamID == actual.Winner {
			outcome = 1
			score.ChampionProbability = p
		}
		if r.TeamID == actual.RunnerUp {
			score.RunnerUpFinalist = r.Finalist / 100
		}
		brier += math.Pow(p-outcome, 2)
	}
	if len(a.Results) > 0 {
		score.BrierScore = brier / float64(len(a.Results))
	}

	if len(actual.Top4) > 0 {
		ranked := append([]models.TeamOdds(nil), a.Results...)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Top4 > ranked[j].Top4 })
		predicted := make(map[int64]bool, 4)
		for i := 0; i < len(ranked) && i < 4; i++ {
			predicted[ranked[i].TeamID] = true
		}
		for _, id := range actual.Top4 {
			if predicted[id] {
				score.Top4Hits++
			}
		}
		score.Top4HitRate = float64(score.Top4Hits) / float64(len(actual.Top4))
	}
	return score, nil
}
