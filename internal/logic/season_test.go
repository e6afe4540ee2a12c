package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapelo/forecast-api/internal/models"
	"github.com/mapelo/forecast-api/internal/store"
)

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func newSeasonFixture(t *testing.T, now time.Time) (*SeasonManager, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.AddTeam(models.Team{ID: 1, Name: "Alpha", Active: true})
	mem.AddTeam(models.Team{ID: 2, Name: "Bravo", Active: true})
	mem.AddTeam(models.Team{ID: 3, Name: "Retired", Active: false})

	mgr := NewSeasonManager(SeasonManagerConfig{
		Seasons:   mem,
		Teams:     mem,
		Ratings:   mem,
		Matches:   mem,
		Params:    DefaultRatingParams(),
		ResetYear: 2025,
		Now:       fixedNow(now),
	})
	return mgr, mem
}

func TestCreateSeasonBaseline(t *testing.T) {
	mgr, mem := newSeasonFixture(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	season, written, err := mgr.CreateSeason(context.Background(), 2025)
	require.NoError(t, err)
	assert.True(t, season.Active)
	assert.Equal(t, models.SeasonStart(2025), season.StartDate)

	pool, _ := DefaultMapPools().ForYear(2025)
	assert.Equal(t, 2*len(pool), written)

	perTeam := map[int64]map[string]int{}
	for _, r := range mem.Ratings() {
		assert.Equal(t, DefaultInitialRating, r.Rating)
		assert.Equal(t, models.SeasonStart(2025), r.RatedAt)
		assert.Nil(t, r.SourceResultID)
		if perTeam[r.TeamID] == nil {
			perTeam[r.TeamID] = map[string]int{}
		}
		perTeam[r.TeamID][r.MapName]++
	}
	require.Len(t, perTeam, 2)
	for team, maps := range perTeam {
		assert.Len(t, maps, len(pool), "team %d", team)
		for m, n := range maps {
			assert.Equal(t, 1, n, "team %d map %s", team, m)
		}
	}
}

func TestCreateSeasonEndsPrevious(t *testing.T) {
	ctx := context.Background()
	mgr, mem := newSeasonFixture(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	first, _, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)
	second, _, err := mgr.CreateSeason(ctx, 2026)
	require.NoError(t, err)

	seasons, err := mem.Seasons(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 2)
	assert.Equal(t, first.ID, seasons[0].ID)
	assert.False(t, seasons[0].Active)
	assert.NotNil(t, seasons[0].EndDate)
	assert.Equal(t, second.ID, seasons[1].ID)
	assert.True(t, seasons[1].Active)

	active, err := mem.ActiveSeason(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestCreateSeasonOrder(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newSeasonFixture(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	_, _, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)

	_, _, err = mgr.CreateSeason(ctx, 2024)
	assert.ErrorIs(t, err, ErrSeasonOrder)
}

func TestCreateSeasonSameYearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr, mem := newSeasonFixture(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	first, written, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)
	require.NotZero(t, written)

	again, written, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Zero(t, written)
	assert.Len(t, mem.Ratings(), 2*7)

	seasons, err := mem.Seasons(ctx)
	require.NoError(t, err)
	assert.Len(t, seasons, 1)
}

type flakyRatings struct {
	*store.Memory
	failures int
}

func (f *flakyRatings) AppendRatings(ctx context.Context, records []models.RatingRecord) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("io timeout")
	}
	return f.Memory.AppendRatings(ctx, records)
}

func TestCreateSeasonRetryCompletesBaseline(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.AddTeam(models.Team{ID: 1, Active: true})
	mem.AddTeam(models.Team{ID: 2, Active: true})
	ratings := &flakyRatings{Memory: mem, failures: 1}
	mgr := NewSeasonManager(SeasonManagerConfig{
		Seasons: mem, Teams: mem, Ratings: ratings, Matches: mem,
		Params: DefaultRatingParams(),
		Now:    fixedNow(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)),
	})

	created, _, err := mgr.CreateSeason(ctx, 2025)
	require.Error(t, err)
	require.NotNil(t, created)
	assert.Empty(t, mem.Ratings())

	retried, written, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, created.ID, retried.ID)
	assert.Equal(t, 2*7, written)
	assert.Len(t, mem.Ratings(), 2*7)
}

func TestSeasonChangesInvalidateSnapshotCache(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.AddTeam(models.Team{ID: 1, Active: true})
	cache := &countingCache{}
	mgr := NewSeasonManager(SeasonManagerConfig{
		Seasons: mem, Teams: mem, Ratings: mem, Matches: mem, Cache: cache,
		Params:    DefaultRatingParams(),
		ResetYear: 2025,
		Now:       fixedNow(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
	})

	first, _, err := mgr.CreateSeason(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, cache.invalidated)

	second, _, err := mgr.CreateSeason(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, first.ID, second.ID}, cache.invalidated)

	cache.invalidated = nil
	_, err = mgr.ResetAll(ctx, ResetConfirmation)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{first.ID, second.ID}, cache.invalidated)
}

func TestCreateSeasonConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, err := mem.SwapActiveSeason(ctx, 0, models.Season{Year: 2024, StartDate: models.SeasonStart(2024)}, time.Now())
	require.NoError(t, err)

	// a stale view of the active season must lose the swap
	_, err = mem.SwapActiveSeason(ctx, 0, models.Season{Year: 2025, StartDate: models.SeasonStart(2025)}, time.Now())
	assert.ErrorIs(t, err, ErrSeasonConflict)
}

func TestCreateSeasonWithoutPool(t *testing.T) {
	mgr, mem := newSeasonFixture(t, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))

	season, written, err := mgr.CreateSeason(context.Background(), 2031)
	require.NoError(t, err)
	assert.Equal(t, 2031, season.Year)
	assert.Zero(t, written)
	assert.Empty(t, mem.Ratings())
}

func TestEnsureActiveCreatesCurrentYear(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newSeasonFixture(t, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC))

	season, err := mgr.EnsureActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2026, season.Year)

	again, err := mgr.EnsureActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, season.ID, again.ID)
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	mgr, mem := newSeasonFixture(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	_, err := mgr.ResetAll(ctx, "yes")
	assert.ErrorIs(t, err, ErrResetNotConfirmed)

	_, _, err = mgr.CreateSeason(ctx, 2026)
	require.NoError(t, err)
	completed := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	mem.AddResult(models.MapResult{ID: 1, MapName: "Nuke", WinnerID: 1, LoserID: 2, WinnerRounds: 13, LoserRounds: 5, CompletedAt: &completed, Processed: true})
	require.NoError(t, mem.AppendRatings(ctx, []models.RatingRecord{{TeamID: 1, MapName: "Nuke", Rating: 1100, RatedAt: completed}}))

	summary, err := mgr.ResetAll(ctx, ResetConfirmation)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.ResultsReset)
	assert.Equal(t, []int{2025, 2026}, summary.YearsBaselined)

	for _, r := range mem.Ratings() {
		assert.Equal(t, DefaultInitialRating, r.Rating)
	}
	assert.Len(t, mem.Ratings(), summary.BaselineRecords)
	assert.False(t, mem.Results()[0].Processed)
}
