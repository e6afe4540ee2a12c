package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mapelo/forecast-api/internal/models"
)

// MockRunner implements Runner for testing
type MockRunner struct {
	Delay time.Duration
	Fail  bool
	// Block, when set, holds every run until closed
	Block chan struct{}
	calls atomic.Int64
}

func (m *MockRunner) RunSimulation(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error) {
	m.calls.Add(1)
	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Fail {
		return nil, errors.New("simulation exploded")
	}
	return &models.SimulationArtifact{ID: req.ID, TournamentID: req.TournamentID, NumTrials: req.Trials}, nil
}

func (m *MockRunner) Calls() int64 {
	return m.calls.Load()
}

// MockRatings implements RatingRunner and VetoAnalyzer
type MockRatings struct {
	mu    sync.Mutex
	runs  int
	since []time.Time
	Err   error
}

func (m *MockRatings) ProcessPending(ctx context.Context) (*models.ProcessSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.ProcessSummary{Processed: 1}, nil
}

func (m *MockRatings) Analyze(ctx context.Context, since time.Time) (*models.OptimalityReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = append(m.since, since)
	return &models.OptimalityReport{}, nil
}

func (m *MockRatings) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

func (m *MockRatings) Since() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.since...)
}
