package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

func TestEnqueueFull(t *testing.T) {
	// no workers started, so the queue never drains
	pool := NewPool(PoolConfig{
		QueueSize: 1,
		Runner:    &MockRunner{},
		Logger:    zap.NewNop(),
	})

	_, ok := pool.Enqueue(models.RunSimulationRequest{TournamentID: "a", Trials: 10})
	if !ok {
		t.Fatal("Failed to enqueue first job")
	}

	start := time.Now()
	_, ok = pool.Enqueue(models.RunSimulationRequest{TournamentID: "b", Trials: 10})
	duration := time.Since(start)

	if ok {
		t.Error("Enqueue should have returned false when queue is full")
	}
	if duration > 10*time.Millisecond {
		t.Errorf("Enqueue took too long (%v), expected immediate return", duration)
	}
}

func TestPool_RunsJobsToCompletion(t *testing.T) {
	runner := &MockRunner{}
	pool := NewPool(PoolConfig{WorkerCount: 2, QueueSize: 8, Runner: runner, Logger: zap.NewNop()})
	pool.Start(context.Background())

	id, ok := pool.Enqueue(models.RunSimulationRequest{TournamentID: "major", Trials: 100})
	require.True(t, ok)
	require.NotEqual(t, uuid.Nil, id)

	require.Eventually(t, func() bool {
		st, ok := pool.Status(id)
		return ok && st.Status == models.SimulationDone
	}, time.Second, 5*time.Millisecond)

	st, _ := pool.Status(id)
	require.NotNil(t, st.Artifact)
	assert.Equal(t, id, st.Artifact.ID)
	assert.Equal(t, 100, st.Artifact.NumTrials)

	pool.Stop(context.Background())
}

func TestPool_RecordsFailures(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, Runner: &MockRunner{Fail: true}, Logger: zap.NewNop()})
	pool.Start(context.Background())

	id, ok := pool.Enqueue(models.RunSimulationRequest{TournamentID: "major", Trials: 1})
	require.True(t, ok)

	require.Eventually(t, func() bool {
		st, _ := pool.Status(id)
		return st.Status == models.SimulationFailed
	}, time.Second, 5*time.Millisecond)

	st, _ := pool.Status(id)
	assert.Equal(t, "simulation exploded", st.Error)
	assert.Nil(t, st.Artifact)

	pool.Stop(context.Background())
}

func TestPool_StopDrainsQueue(t *testing.T) {
	runner := &MockRunner{Delay: 5 * time.Millisecond}
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 4, Runner: runner, Logger: zap.NewNop()})
	pool.Start(context.Background())

	for i := 0; i < 4; i++ {
		_, ok := pool.Enqueue(models.RunSimulationRequest{Trials: 1})
		require.True(t, ok)
	}
	pool.Stop(context.Background())

	assert.Equal(t, int64(4), runner.Calls())

	_, ok := pool.Enqueue(models.RunSimulationRequest{Trials: 1})
	assert.False(t, ok, "stopped pool must reject jobs")
}

func TestPool_StopDeadlineCancelsRunningJobs(t *testing.T) {
	runner := &MockRunner{Block: make(chan struct{})}
	pool := NewPool(PoolConfig{WorkerCount: 1, Runner: runner, Logger: zap.NewNop()})
	pool.Start(context.Background())

	id, ok := pool.Enqueue(models.RunSimulationRequest{Trials: 1})
	require.True(t, ok)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	pool.Stop(ctx)

	st, _ := pool.Status(id)
	assert.Equal(t, models.SimulationFailed, st.Status)
}

func TestPool_StatusLimitEvictsOldest(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, QueueSize: 8, StatusLimit: 2, Runner: &MockRunner{}, Logger: zap.NewNop()})
	pool.Start(context.Background())

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		id, ok := pool.Enqueue(models.RunSimulationRequest{Trials: 1})
		require.True(t, ok)
		ids = append(ids, id)
	}
	pool.Stop(context.Background())

	_, ok := pool.Status(ids[0])
	assert.False(t, ok)
	for _, id := range ids[1:] {
		st, ok := pool.Status(id)
		assert.True(t, ok)
		assert.Equal(t, models.SimulationDone, st.Status)
	}
}

func TestPool_StopWithoutStart(t *testing.T) {
	pool := NewPool(PoolConfig{WorkerCount: 1, Runner: &MockRunner{}, Logger: zap.NewNop()})

	require.NotPanics(t, func() { pool.Stop(context.Background()) })
	require.NotPanics(t, func() { pool.Stop(context.Background()) })

	_, ok := pool.Enqueue(models.RunSimulationRequest{TournamentID: "late", Trials: 10})
	assert.False(t, ok)
}
