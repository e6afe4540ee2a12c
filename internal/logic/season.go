package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
	"github.com/mapelo/forecast-api/internal/store"
)

// ResetConfirmation must be passed verbatim to ResetAll
const ResetConfirmation = "RESET"

var (
	ErrNoActiveSeason    = errors.New("no active season")
	ErrSeasonConflict    = store.ErrSeasonConflict
	ErrSeasonOrder       = errors.New("season year precedes the active season")
	ErrResetNotConfirmed = errors.New("reset requires explicit confirmation")
)

type SeasonManagerConfig struct {
	Seasons   SeasonStore
	Teams     TeamStore
	Ratings   RatingStore
	Matches   MatchStore
	Cache     SnapshotCache
	Pools     MapPools
	Params    RatingParams
	ResetYear int
	Logger    *zap.SugaredLogger
	Now       func() time.Time
}

// SeasonManager owns the season lifecycle and baseline resets
type SeasonManager struct {
	seasons   SeasonStore
	teams     TeamStore
	ratings   RatingStore
	matches   MatchStore
	cache     SnapshotCache
	pools     MapPools
	params    RatingParams
	resetYear int
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewSeasonManager(cfg SeasonManagerConfig) *SeasonManager {
	if cfg.Pools == nil {
		cfg.Pools = DefaultMapPools()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &SeasonManager{
		seasons:   cfg.Seasons,
		teams:     cfg.Teams,
		ratings:   cfg.Ratings,
		matches:   cfg.Matches,
		cache:     cfg.Cache,
		pools:     cfg.Pools,
		params:    cfg.Params,
		resetYear: cfg.ResetYear,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// CreateSeason ends the active season (if any), activates a season for year and
// inserts the baseline ratings for that year's map pool. It returns the number
// of baseline records written. Requesting the active season's year again fills
// in any missing baseline records, which completes an interrupted creation.
func (m *SeasonManager) CreateSeason(ctx context.Context, year int) (*models.Season, int, error) {
	current, err := m.seasons.ActiveSeason(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load active season: %w", err)
	}

	var expectedID int64
	if current != nil {
		if year == current.Year {
			written, err := m.baseline(ctx, year)
			if err != nil {
				return current, 0, err
			}
			if written > 0 {
				m.invalidate(ctx, current.ID)
				m.logger.Warnw("Completed baseline for active season", "season", current.ID, "year", year, "baselineRecords", written)
			}
			return current, written, nil
		}
		if year < current.Year {
			return nil, 0, fmt.Errorf("%w: active %d, requested %d", ErrSeasonOrder, current.Year, year)
		}
		expectedID = current.ID
	}

	next := models.Season{
		Year:      year,
		StartDate: models.SeasonStart(year),
		Active:    true,
	}
	created, err := m.seasons.SwapActiveSeason(ctx, expectedID, next, m.now().UTC())
	if err != nil {
		return nil, 0, fmt.Errorf("activate season %d: %w", year, err)
	}

	if current != nil {
		m.invalidate(ctx, current.ID)
	}
	m.invalidate(ctx, created.ID)

	written, err := m.baseline(ctx, year)
	if err != nil {
		return created, 0, err
	}

	m.logger.Infow("Season created",
		"season", created.ID,
		"year", year,
		"previous", expectedID,
		"baselineRecords", written,
	)
	return created, written, nil
}

// EnsureActive returns the active season, creating one for the current year when none exists.
func (m *SeasonManager) EnsureActive(ctx context.Context) (*models.Season, error) {
	current, err := m.seasons.ActiveSeason(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active season: %w", err)
	}
	if current != nil {
		return current, nil
	}

	year := m.now().UTC().Year()
	m.logger.Warnw("No active season, creating one", "year", year)

	created, _, err := m.CreateSeason(ctx, year)
	if errors.Is(err, ErrSeasonConflict) {
		// another caller won the race
		return m.seasons.ActiveSeason(ctx)
	}
	return created, err
}

// ResetAll deletes all rating history, marks every result unprocessed and
// re-baselines the reset year plus every later season. Destructive.
func (m *SeasonManager) ResetAll(ctx context.Context, confirm string) (*models.ResetSummary, error) {
	if confirm != ResetConfirmation {
		return nil, ErrResetNotConfirmed
	}

	m.logger.Warnw("Resetting all ratings", "resetYear", m.resetYear)

	if err := m.ratings.DeleteAllRatings(ctx); err != nil {
		return nil, fmt.Errorf("delete ratings: %w", err)
	}
	reset, err := m.matches.MarkAllUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("mark results unprocessed: %w", err)
	}

	seasons, err := m.seasons.Seasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	years := []int{m.resetYear}
	for _, s := range seasons {
		if s.Year > m.resetYear {
			years = append(years, s.Year)
		}
	}

	for _, s := range seasons {
		m.invalidate(ctx, s.ID)
	}

	summary := &models.ResetSummary{ResultsReset: reset}
	for _, year := range years {
		n, err := m.baseline(ctx, year)
		if err != nil {
			return summary, err
		}
		summary.BaselineRecords += n
		summary.YearsBaselined = append(summary.YearsBaselined, year)
	}

	m.logger.Infow("Ratings reset",
		"resultsReset", reset,
		"baselineRecords", summary.BaselineRecords,
		"years", summary.YearsBaselined,
	)
	return summary, nil
}

// invalidate drops a season's cached snapshot. Failures only cost staleness
// until the TTL, so they are logged.
func (m *SeasonManager) invalidate(ctx context.Context, seasonID int64) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, seasonID); err != nil {
		m.logger.Warnw("Failed to invalidate snapshot cache", "season", seasonID, "error", err)
	}
}

// baseline writes the initial rating for every active team and legal map of
// year that has no record dated at the season start yet.
func (m *SeasonManager) baseline(ctx context.Context, year int) (int, error) {
	pool, ok := m.pools.ForYear(year)
	if !ok {
		m.logger.Warnw("No map pool defined for season year, skipping baseline reset", "year", year)
		return 0, nil
	}

	teams, err := m.teams.ActiveTeams(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active teams: %w", err)
	}

	start := models.SeasonStart(year)
	existing, err := m.ratings.RatingsSince(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("load baseline for %d: %w", year, err)
	}
	seeded := make(map[teamMap]bool)
	for _, r := range existing {
		if r.RatedAt.Equal(start) {
			seeded[teamMap{r.TeamID, r.MapName}] = true
		}
	}

	records := make([]models.RatingRecord, 0, len(teams)*len(pool))
	for _, team := range teams {
		for _, mapName := range pool {
			if seeded[teamMap{team.ID, mapName}] {
				continue
			}
			records = append(records, models.RatingRecord{
				TeamID:  team.ID,
				MapName: mapName,
				Rating:  m.params.Initial,
				RatedAt: start,
			})
		}
	}

	if len(records) == 0 {
		return 0, nil
	}
	if err := m.ratings.AppendRatings(ctx, records); err != nil {
		return 0, fmt.Errorf("insert baseline for %d: %w", year, err)
	}
	return len(records), nil
}
