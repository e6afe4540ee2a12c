package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/models"
	"github.com/mapelo/forecast-api/internal/store"
)

func int64Ptr(v int64) *int64 { return &v }

type testDeps struct {
	queue       *MockQueue
	ratings     *MockRatingService
	seasons     *MockSeasonService
	simulations *MockSimulationService
	cache       *MockCache
	mem         *store.Memory
}

func newTestHandler(t *testing.T, mutate func(*Config)) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		queue:       &MockQueue{Statuses: map[uuid.UUID]models.SimulationJobStatus{}},
		ratings:     &MockRatingService{},
		seasons:     &MockSeasonService{},
		simulations: &MockSimulationService{},
		cache:       &MockCache{},
		mem:         store.NewMemory(),
	}
	cfg := Config{
		Queue:         deps.queue,
		Ratings:       deps.ratings,
		Seasons:       deps.seasons,
		Reader:        deps.mem,
		Cache:         deps.cache,
		Simulations:   deps.simulations,
		Tournaments:   store.NewFileTournaments(t.TempDir()),
		Vetoes:        deps.mem,
		Analyzer:      logic.NewOptimalityAnalyzer(logic.OptimalityAnalyzerConfig{Vetoes: deps.mem, Ratings: deps.mem}),
		DefaultTrials: 500,
		Logger:        zap.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg).Routes(), deps
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]Check
		expectedStatus int
	}{
		{
			name:           "All healthy",
			checks:         map[string]Check{"postgres": func(context.Context) error { return nil }},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Redis down",
			checks: map[string]Check{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, func(c *Config) { c.Checks = tt.checks })
			rr := do(t, h, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestInstallDatabase_ReportsFailures(t *testing.T) {
	h, _ := newTestHandler(t, func(c *Config) {
		c.Installers = map[string]Check{
			"postgres":   func(context.Context) error { return nil },
			"clickhouse": func(context.Context) error { return errors.New("syntax error") },
		}
	})

	rr := do(t, h, http.MethodPost, "/api/v1/system/install", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body struct {
		Results map[string]string `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Results["postgres"])
	assert.Equal(t, "failed: syntax error", body.Results["clickhouse"])
}

func TestCreateSeason_TableDriven(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		createErr      error
		expectedStatus int
	}{
		{name: "Valid year", body: `{"year": 2026}`, expectedStatus: http.StatusCreated},
		{name: "Invalid JSON", body: `{"year":`, expectedStatus: http.StatusBadRequest},
		{name: "Year out of range", body: `{"year": 1999}`, expectedStatus: http.StatusBadRequest},
		{name: "Not after active season", body: `{"year": 2024}`, createErr: logic.ErrSeasonOrder, expectedStatus: http.StatusBadRequest},
		{name: "Concurrent change", body: `{"year": 2027}`, createErr: logic.ErrSeasonConflict, expectedStatus: http.StatusConflict},
		{name: "Store failure", body: `{"year": 2027}`, createErr: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, deps := newTestHandler(t, nil)
			deps.seasons.CreateSeasonFunc = func(ctx context.Context, year int) (*models.Season, int, error) {
				if tt.createErr != nil {
					return nil, 0, tt.createErr
				}
				return &models.Season{ID: 7, Year: year, Active: true}, 70, nil
			}

			rr := do(t, h, http.MethodPost, "/api/v1/seasons", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestResetRatings_RequiresConfirmation(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	called := false
	deps.seasons.ResetAllFunc = func(ctx context.Context, confirm string) (*models.ResetSummary, error) {
		called = true
		return &models.ResetSummary{ResultsReset: 3}, nil
	}

	rr := do(t, h, http.MethodPost, "/api/v1/ratings/reset", `{"confirm": "yes"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.False(t, called)

	rr = do(t, h, http.MethodPost, "/api/v1/ratings/reset", `{"confirm": "RESET"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}

func TestProcessRatings_NoActiveSeason(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	deps.ratings.ProcessPendingFunc = func(ctx context.Context) (*models.ProcessSummary, error) {
		return nil, logic.ErrNoActiveSeason
	}

	rr := do(t, h, http.MethodPost, "/api/v1/ratings/process", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestGetRatingAt(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	var gotAt time.Time
	deps.ratings.RatingAtFunc = func(ctx context.Context, teamID int64, mapName string, at time.Time) (float64, error) {
		gotAt = at
		return 1043.5, nil
	}

	rr := do(t, h, http.MethodGet, "/api/v1/ratings/12/ancient?at=2024-03-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), gotAt)
	assert.Contains(t, rr.Body.String(), `"rating":1043.5`)

	rr = do(t, h, http.MethodGet, "/api/v1/ratings/abc/ancient", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/ratings/12/ancient?at=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetCurrentRatings_UsesCacheThenStore(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	ctx := context.Background()
	require.NoError(t, deps.mem.ReplaceSnapshot(ctx, 1, []models.CurrentRating{
		{SeasonID: 1, TeamID: 1, MapName: "nuke", Rating: 1010},
	}))

	rr := do(t, h, http.MethodGet, "/api/v1/ratings/current", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, deps.cache.Puts)

	// a cached copy is served without touching the store
	deps.cache.Rows[1] = []models.CurrentRating{{SeasonID: 1, TeamID: 9, MapName: "inferno", Rating: 990}}
	rr = do(t, h, http.MethodGet, "/api/v1/ratings/current", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"team_id":9`)
	assert.Equal(t, 1, deps.cache.Puts)
}

func TestRunSimulation_TableDriven(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		runErr         error
		queueFull      bool
		expectedStatus int
	}{
		{name: "Sync by tournament id", body: `{"tournament_id": "major"}`, expectedStatus: http.StatusOK},
		{name: "Missing tournament and config", body: `{"trials": 10}`, expectedStatus: http.StatusBadRequest},
		{name: "Negative trials", body: `{"tournament_id": "major", "trials": -5}`, expectedStatus: http.StatusBadRequest},
		{name: "Unknown tournament", body: `{"tournament_id": "nope"}`, runErr: logic.ErrTournamentNotFound, expectedStatus: http.StatusNotFound},
		{name: "Bad bracket", body: `{"tournament_id": "odd"}`, runErr: logic.ErrInvalidBracket, expectedStatus: http.StatusBadRequest},
		{name: "Async accepted", body: `{"tournament_id": "major", "async": true}`, expectedStatus: http.StatusAccepted},
		{name: "Async queue full", body: `{"tournament_id": "major", "async": true}`, queueFull: true, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, deps := newTestHandler(t, nil)
			var gotTrials int
			deps.simulations.RunSimulationFunc = func(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error) {
				gotTrials = req.Trials
				if tt.runErr != nil {
					return nil, tt.runErr
				}
				return &models.SimulationArtifact{ID: uuid.New(), NumTrials: req.Trials}, nil
			}
			if tt.queueFull {
				deps.queue.EnqueueFunc = func(models.RunSimulationRequest) (uuid.UUID, bool) { return uuid.Nil, false }
			}

			rr := do(t, h, http.MethodPost, "/api/v1/simulations/", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, 500, gotTrials, "default trial count applies")
			}
		})
	}
}

func TestGetSimulation(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	queued := uuid.New()
	deps.queue.Statuses[queued] = models.SimulationJobStatus{ID: queued, Status: models.SimulationRunning}

	missing := uuid.New()
	deps.simulations.GetSimulationFunc = func(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error) {
		if id == missing {
			return nil, fmt.Errorf("simulation %s: %w", id, store.ErrNotFound)
		}
		return &models.SimulationArtifact{ID: id, TournamentID: "major"}, nil
	}

	rr := do(t, h, http.MethodGet, "/api/v1/simulations/"+queued.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"running"`)

	stored := uuid.New()
	rr = do(t, h, http.MethodGet, "/api/v1/simulations/"+stored.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"done"`)
	assert.Contains(t, rr.Body.String(), `"tournament_id":"major"`)

	rr = do(t, h, http.MethodGet, "/api/v1/simulations/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/simulations/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBacktestSimulation_NoActualResults(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	deps.simulations.BacktestFunc = func(ctx context.Context, id uuid.UUID) (*models.BacktestScore, error) {
		return nil, logic.ErrNoActualResults
	}

	rr := do(t, h, http.MethodGet, "/api/v1/simulations/"+uuid.NewString()+"/backtest", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestReconcileVetoes(t *testing.T) {
	h, deps := newTestHandler(t, nil)
	deps.mem.AddMatch(models.CompletedMatch{
		ID: 5, TeamAID: 1, TeamBID: 2, PlayedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Vetoes: []models.VetoAction{
			{MatchID: 5, TeamID: nil, Action: models.VetoBan, MapName: "nuke", OrderIndex: 1},
			{MatchID: 5, TeamID: int64Ptr(2), Action: models.VetoBan, MapName: "vertigo", OrderIndex: 2},
			{MatchID: 5, TeamID: nil, Action: models.VetoPick, MapName: "mirage", OrderIndex: 3},
			{MatchID: 5, TeamID: nil, Action: models.VetoDecider, MapName: "anubis", OrderIndex: 7},
		},
	})

	rr := do(t, h, http.MethodGet, "/api/v1/vetoes/5/reconcile", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got []models.VetoAssignment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []models.VetoAssignment{
		{MatchID: 5, OrderIndex: 1, TeamID: 1},
		{MatchID: 5, OrderIndex: 3, TeamID: 1},
	}, got)

	// operator override flips the parity
	rr = do(t, h, http.MethodGet, "/api/v1/vetoes/5/reconcile?first_mover=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got[0].TeamID)

	rr = do(t, h, http.MethodGet, "/api/v1/vetoes/5/reconcile?first_mover=99", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/v1/vetoes/404/reconcile", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAnalyzeVetoes_EmptyRange(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rr := do(t, h, http.MethodPost, "/api/v1/vetoes/analyze?since=2020-01-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"matches_scored":0`)
}
