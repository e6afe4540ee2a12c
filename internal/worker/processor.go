package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

var processorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mapelo_processor_runs_total",
	Help: "Total number of background rating processor runs, by outcome",
}, []string{"outcome"})

// RatingRunner processes pending map results
type RatingRunner interface {
	ProcessPending(ctx context.Context) (*models.ProcessSummary, error)
}

// VetoAnalyzer scores drafts of matches played since a point in time
type VetoAnalyzer interface {
	Analyze(ctx context.Context, since time.Time) (*models.OptimalityReport, error)
}

type ProcessorConfig struct {
	Interval time.Duration
	Ratings  RatingRunner
	// Analyzer is optional; when set it runs after every successful rating pass
	Analyzer VetoAnalyzer
	// Lookback re-analyzes matches recorded late
	Lookback time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Processor periodically folds new results into ratings and re-scores vetoes
type Processor struct {
	config ProcessorConfig
	logger *zap.SugaredLogger
	wg     sync.WaitGroup
	cancel context.CancelFunc
	kick   chan struct{}

	lastAnalyzed time.Time
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Processor{
		config: cfg,
		logger: cfg.Logger.Sugar(),
		kick:   make(chan struct{}, 1),
	}
}

// Start runs one pass immediately and then one per interval
func (p *Processor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.config.Interval)
		defer ticker.Stop()

		p.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				p.RunOnce(ctx)
			case <-p.kick:
				p.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	p.logger.Infow("Rating processor started", "interval", p.config.Interval)
}

// Trigger requests an extra pass without waiting for the ticker
func (p *Processor) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("Rating processor stopped")
}

// RunOnce performs a single rating pass followed by veto analysis
func (p *Processor) RunOnce(ctx context.Context) {
	started := p.config.Now().UTC()

	summary, err := p.config.Ratings.ProcessPending(ctx)
	if err != nil {
		p.logger.Errorw("Background rating pass failed", "error", err)
		processorRuns.WithLabelValues("error").Inc()
		return
	}
	processorRuns.WithLabelValues("ok").Inc()
	if summary.Processed > 0 || summary.Skipped > 0 {
		p.logger.Infow("Background rating pass",
			"processed", summary.Processed,
			"skipped", summary.Skipped,
			"issues", len(summary.Issues),
		)
	}

	if p.config.Analyzer == nil {
		return
	}

	since := models.SeasonStart(started.Year())
	if !p.lastAnalyzed.IsZero() {
		since = p.lastAnalyzed.Add(-p.config.Lookback)
	}
	report, err := p.config.Analyzer.Analyze(ctx, since)
	if err != nil {
		p.logger.Errorw("Background veto analysis failed", "since", since, "error", err)
		return
	}
	p.lastAnalyzed = started
	p.logger.Infow("Background veto analysis",
		"since", since,
		"scored", report.MatchesScored,
		"skipped", report.MatchesSkipped,
	)
}
