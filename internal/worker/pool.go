// Package worker runs simulations and rating maintenance in the background.
// Simulation requests are queued on a bounded channel and shed when full so
// HTTP handlers never block on long Monte-Carlo runs.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

// Prometheus metrics
var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapelo_simulation_jobs_enqueued_total",
		Help: "Total number of simulation jobs accepted",
	})

	jobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapelo_simulation_jobs_completed_total",
		Help: "Total number of simulation jobs finished, by status",
	}, []string{"status"})

	jobsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapelo_simulation_jobs_load_shed_total",
		Help: "Total number of simulation jobs rejected because the queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapelo_simulation_queue_depth",
		Help: "Current depth of the simulation queue",
	})
)

// Runner executes one simulation request
type Runner interface {
	RunSimulation(ctx context.Context, req models.RunSimulationRequest) (*models.SimulationArtifact, error)
}

// Job is a queued simulation request
type Job struct {
	Request  models.RunSimulationRequest
	Enqueued time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
	// StatusLimit bounds how many finished job statuses are remembered
	StatusLimit int
	Runner      Runner
	Logger      *zap.Logger
}

// Pool runs simulation jobs on a fixed set of workers
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	mu       sync.Mutex
	stopped  bool
	statuses map[uuid.UUID]*models.SimulationJobStatus
	finished []uuid.UUID
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.StatusLimit <= 0 {
		cfg.StatusLimit = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
		statuses: make(map[uuid.UUID]*models.SimulationJobStatus),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Simulation pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
	)
}

// Stop drains queued jobs and waits for running ones. When ctx expires first,
// in-flight simulations are cancelled.
func (p *Pool) Stop(ctx context.Context) {
	p.logger.Info("Stopping simulation pool...")

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	if p.cancel == nil {
		// never started
		p.logger.Info("Simulation pool stopped")
		return
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("Shutdown deadline reached, cancelling running simulations")
		p.cancel()
		<-done
	}
	p.cancel()
	p.logger.Info("Simulation pool stopped")
}

// Enqueue adds a job without blocking. It returns false when the queue is
// full or the pool is stopping.
func (p *Pool) Enqueue(req models.RunSimulationRequest) (uuid.UUID, bool) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		p.logger.Warnw("Simulation pool stopped, dropping job", "id", req.ID)
		jobsLoadShed.Inc()
		return uuid.Nil, false
	}

	select {
	case p.jobQueue <- Job{Request: req, Enqueued: time.Now()}:
		p.statuses[req.ID] = &models.SimulationJobStatus{ID: req.ID, Status: models.SimulationQueued}
		jobsEnqueued.Inc()
		return req.ID, true
	default:
		p.logger.Warnw("Simulation queue full, shedding job", "queueSize", p.config.QueueSize)
		jobsLoadShed.Inc()
		return uuid.Nil, false
	}
}

// Status returns the last known state of a job accepted by this pool
func (p *Pool) Status(id uuid.UUID) (models.SimulationJobStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.statuses[id]
	if !ok {
		return models.SimulationJobStatus{}, false
	}
	return *st, true
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.run(id, job)
	}
}

func (p *Pool) run(worker int, job Job) {
	req := job.Request
	p.setStatus(req.ID, models.SimulationRunning, nil, nil)

	start := time.Now()
	artifact, err := p.config.Runner.RunSimulation(p.ctx, req)
	if err != nil {
		p.logger.Errorw("Simulation failed",
			"worker", worker,
			"id", req.ID,
			"tournament", req.TournamentID,
			"error", err,
		)
		p.setStatus(req.ID, models.SimulationFailed, nil, err)
		jobsCompleted.WithLabelValues(string(models.SimulationFailed)).Inc()
		return
	}

	p.logger.Infow("Simulation finished",
		"worker", worker,
		"id", req.ID,
		"trials", req.Trials,
		"queued", start.Sub(job.Enqueued),
		"duration", time.Since(start),
	)
	p.setStatus(req.ID, models.SimulationDone, artifact, nil)
	jobsCompleted.WithLabelValues(string(models.SimulationDone)).Inc()
}

func (p *Pool) setStatus(id uuid.UUID, status models.SimulationStatus, artifact *models.SimulationArtifact, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.statuses[id]
	if !ok {
		st = &models.SimulationJobStatus{ID: id}
		p.statuses[id] = st
	}
	st.Status = status
	st.Artifact = artifact
	if err != nil {
		st.Error = err.Error()
	}

	if status != models.SimulationDone && status != models.SimulationFailed {
		return
	}
	p.finished = append(p.finished, id)
	for len(p.finished) > p.config.StatusLimit {
		delete(p.statuses, p.finished[0])
		p.finished = p.finished[1:]
	}
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
