package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mapelo/forecast-api/internal/models"
)

// MockQueue implements SimulationQueue
type MockQueue struct {
	EnqueueFunc func(req models.RunSimulationRequest) (uuid.UUID, bool)
	Statuses    map[uuid.UUID]models.SimulationJobStatus
	Enqueued    []models.RunSimulationRequest
}

func (m *MockQueue) Enqueue(req models.RunSimulationRequest) (uuid.UUID, bool) {
	m.Enqueued = append(m.Enqueued, req)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(req)
	}
	return uuid.New(), true
}

func (m *MockQueue) Status(id uuid.UUID) (models.SimulationJobStatus, bool) {
	st, ok := m.Statuses[id]
	return st, ok
}

func (m *MockQueue) QueueDepth() int { return len(m.Enqueued) }

// MockRatingService implements RatingService
type MockRatingService struct {
	ProcessPendingFunc func(ctx context.Context) (*models.ProcessSummary, error)
	RatingAtFunc       func(ctx context.Context, teamID int64, mapName string, t time.Time) (float64, error)
}

func (m *MockRatingService) ProcessPending(ctx context.Context) (*models.ProcessSummary, error) {
	if m.ProcessPendingFunc != nil {
		return m.ProcessPendingFunc(ctx)
	}
	return &models.ProcessSummary{}, nil
}

func (m *MockRatingService) RatingAt(ctx context.Context, teamID int64, mapName string, t time.Time) (float64, error) {
	if m.RatingAtFunc != nil {
		return m.RatingAtFunc(ctx, teamID, mapName, t)
	}
	return 1000, nil
}

// MockSeasonService implements SeasonService
type MockSeasonService struct {
	CreateSeasonFunc func(ctx context.Context, year int) (*models.Season, int, error)
	ResetAllFunc     func(ctx context.Context, confirm string) (*models.ResetSummary, error)
	Active           *models.Season
}

func (m *MockSeasonService) CreateSeason(ctx context.Context, year int) (*models.Season, int, error) {
	if m.CreateSeasonFunc != nil {
		return m.CreateSeasonFunc(ctx, year)
	}
	return &models.Season{ID: 1, Year: year, Active: true}, 0, nil
}

func (m *MockSeasonService) EnsureActive(ctx context.Context) (*models.Season, error) {
	if m.Active != nil {
		return m.Active, nil
	}
	return &models.Season{ID: 1, Year: 2025, Active: true}, nil
}

func (m *MockSeasonService) ResetAll(ctx context.Context, confirm string) (*models.ResetSummary, error) {
	if m.ResetAllFunc != nil {
		return m.ResetAllFunc(ctx, confirm)
	}
	return &models.ResetSummary{}, nil
}

// MockSimulationService implements logic.SimulationService
type MockSimulationService struct {
	RunSimulationFunc func(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error)
	GetSimulationFunc func(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error)
	BacktestFunc      func(ctx context.Context, id uuid.UUID) (*models.BacktestScore, error)
}

func (m *MockSimulationService) RunSimulation(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error) {
	if m.RunSimulationFunc != nil {
		return m.RunSimulationFunc(ctx, req)
	}
	return &models.SimulationArtifact{ID: uuid.New(), NumTrials: req.Trials}, nil
}

func (m *MockSimulationService) GetSimulation(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error) {
	if m.GetSimulationFunc != nil {
		return m.GetSimulationFunc(ctx, id)
	}
	return &models.SimulationArtifact{ID: id}, nil
}

func (m *MockSimulationService) Backtest(ctx context.Context, id uuid.UUID) (*models.BacktestScore, error) {
	if m.BacktestFunc != nil {
		return m.BacktestFunc(ctx, id)
	}
	return &models.BacktestScore{}, nil
}

// MockCache implements logic.SnapshotCache
type MockCache struct {
	Rows map[int64][]models.CurrentRating
	Puts int
}

func (m *MockCache) Get(ctx context.Context, seasonID int64) ([]models.CurrentRating, bool, error) {
	rows, ok := m.Rows[seasonID]
	return rows, ok, nil
}

func (m *MockCache) Put(ctx context.Context, seasonID int64, rows []models.CurrentRating) error {
	if m.Rows == nil {
		m.Rows = make(map[int64][]models.CurrentRating)
	}
	m.Rows[seasonID] = rows
	m.Puts++
	return nil
}

func (m *MockCache) Invalidate(ctx context.Context, seasonID int64) error {
	delete(m.Rows, seasonID)
	return nil
}
