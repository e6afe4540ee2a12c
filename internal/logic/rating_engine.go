package logic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mapelo/forecast-api/internal/models"
)

var (
	resultsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapelo_results_processed_total",
		Help: "Total number of map results folded into rating history",
	})

	resultsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapelo_results_skipped_total",
		Help: "Map results left unprocessed, by reason",
	}, []string{"reason"})

	ratingRecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mapelo_rating_records_written_total",
		Help: "Total number of rating records appended by the engine",
	})

	snapshotRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapelo_snapshot_rebuild_duration_seconds",
		Help:    "Duration of current snapshot rebuilds",
		Buckets: prometheus.DefBuckets,
	})
)

type RatingEngineConfig struct {
	Matches MatchStore
	Ratings RatingStore
	Seasons SeasonStore
	Cache   SnapshotCache
	Params  RatingParams
	// Partitions bounds how many maps are processed concurrently
	Partitions int
	Logger     *zap.SugaredLogger
}

// RatingEngine folds pending map results into rating history. Results are
// partitioned by map; each partition is processed in completion order.
type RatingEngine struct {
	matches    MatchStore
	ratings    RatingStore
	seasons    SeasonStore
	cache      SnapshotCache
	params     RatingParams
	partitions int
	logger     *zap.SugaredLogger
	mu         sync.Mutex
}

func NewRatingEngine(cfg RatingEngineConfig) *RatingEngine {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &RatingEngine{
		matches:    cfg.Matches,
		ratings:    cfg.Ratings,
		seasons:    cfg.Seasons,
		cache:      cfg.Cache,
		params:     cfg.Params,
		partitions: cfg.Partitions,
		logger:     cfg.Logger,
	}
}

type partitionResult struct {
	processed int
	skipped   int
	written   int
	issues    []models.ProcessingIssue
}

// ProcessPending drains unprocessed results and rebuilds the active season's snapshot.
// Only one run executes at a time per engine.
func (e *RatingEngine) ProcessPending(ctx context.Context) (*models.ProcessSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending, err := e.matches.PendingResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending results: %w", err)
	}

	summary := &models.ProcessSummary{}
	partitions := make(map[string][]models.MapResult)
	var order []string
	for _, r := range pending {
		if r.CompletedAt == nil || r.CompletedAt.IsZero() {
			e.logger.Warnw("Skipping map result without completion time", "result", r.ID, "map", r.MapName)
			resultsSkipped.WithLabelValues(string(models.IssueMissingTimestamp)).Inc()
			summary.Skipped++
			summary.Issues = append(summary.Issues, models.ProcessingIssue{
				Kind:     models.IssueMissingTimestamp,
				EntityID: r.ID,
				Detail:   "completed_at is not set",
			})
			continue
		}
		if _, ok := partitions[r.MapName]; !ok {
			order = append(order, r.MapName)
		}
		partitions[r.MapName] = append(partitions[r.MapName], r)
	}

	results := make([]partitionResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.partitions)
	for i, mapName := range order {
		batch := partitions[mapName]
		sort.SliceStable(batch, func(a, b int) bool {
			return batch[a].CompletedAt.Before(*batch[b].CompletedAt)
		})
		g.Go(func() error {
			res, err := e.processPartition(gctx, batch)
			results[i] = res
			if err != nil {
				return fmt.Errorf("map %s: %w", mapName, err)
			}
			return nil
		})
	}
	groupErr := g.Wait()

	for _, res := range results {
		summary.Processed += res.processed
		summary.Skipped += res.skipped
		summary.RecordsWritten += res.written
		summary.Issues = append(summary.Issues, res.issues...)
	}
	if groupErr != nil {
		return summary, groupErr
	}

	season, err := e.seasons.ActiveSeason(ctx)
	if err != nil {
		return summary, fmt.Errorf("load active season: %w", err)
	}
	if season == nil {
		return summary, ErrNoActiveSeason
	}

	rows, err := e.RebuildSnapshot(ctx, season)
	if err != nil {
		return summary, err
	}
	summary.SeasonID = season.ID
	summary.SnapshotRows = rows

	e.logger.Infow("Pending results processed",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"records", summary.RecordsWritten,
		"season", season.ID,
		"snapshotRows", rows,
	)
	return summary, nil
}

func (e *RatingEngine) processPartition(ctx context.Context, batch []models.MapResult) (partitionResult, error) {
	var res partitionResult
	for _, r := range batch {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		records, err := e.rate(ctx, r)
		if errors.Is(err, ErrInvalidResult) {
			e.logger.Warnw("Skipping invalid map result", "result", r.ID, "map", r.MapName, "error", err)
			resultsSkipped.WithLabelValues(string(models.IssueInvalidResult)).Inc()
			res.skipped++
			res.issues = append(res.issues, models.ProcessingIssue{
				Kind:     models.IssueInvalidResult,
				EntityID: r.ID,
				Detail:   err.Error(),
			})
			continue
		}
		if err != nil {
			return res, err
		}

		if err := e.matches.CommitResult(ctx, r.ID, records); err != nil {
			return res, fmt.Errorf("commit result %d: %w", r.ID, err)
		}
		res.processed++
		res.written += len(records)
		resultsProcessed.Inc()
		ratingRecordsWritten.Add(float64(len(records)))
	}
	return res, nil
}

// rate computes the two rating records produced by a result
func (e *RatingEngine) rate(ctx context.Context, r models.MapResult) ([]models.RatingRecord, error) {
	if r.WinnerID == r.LoserID {
		return nil, fmt.Errorf("%w: team %d on both sides", ErrInvalidResult, r.WinnerID)
	}

	at := r.CompletedAt.UTC()
	// records dated exactly at come from results committed earlier with the
	// same completion time and must be chained, not bypassed
	through := at.Add(time.Microsecond)
	winner, err := e.ratingBefore(ctx, r.WinnerID, r.MapName, through, at)
	if err != nil {
		return nil, err
	}
	loser, err := e.ratingBefore(ctx, r.LoserID, r.MapName, through, at)
	if err != nil {
		return nil, err
	}

	newWinner, newLoser, err := e.params.Update(winner, loser, r.WinnerRounds, r.LoserRounds)
	if err != nil {
		return nil, err
	}

	id := r.ID
	return []models.RatingRecord{
		{TeamID: r.WinnerID, MapName: r.MapName, Rating: newWinner, RatedAt: at, SourceResultID: &id},
		{TeamID: r.LoserID, MapName: r.MapName, Rating: newLoser, RatedAt: at, SourceResultID: &id},
	}, nil
}

// RatingAt returns a team's rating on a map just before t. History never
// crosses the start of t's season; without in-season history the initial
// rating applies.
func (e *RatingEngine) RatingAt(ctx context.Context, teamID int64, mapName string, t time.Time) (float64, error) {
	return e.ratingBefore(ctx, teamID, mapName, t, t)
}

// ratingBefore looks up the newest record dated before the bound, limited to
// the season containing t
func (e *RatingEngine) ratingBefore(ctx context.Context, teamID int64, mapName string, before, t time.Time) (float64, error) {
	rec, err := e.ratings.LatestRating(ctx, teamID, mapName, before, models.SeasonStart(t.Year()))
	if err != nil {
		return 0, fmt.Errorf("rating lookup team %d map %s: %w", teamID, mapName, err)
	}
	if rec == nil {
		return e.params.Initial, nil
	}
	return rec.Rating, nil
}

// RebuildSnapshot replaces the season's current snapshot from rating history
func (e *RatingEngine) RebuildSnapshot(ctx context.Context, season *models.Season) (int, error) {
	start := time.Now()
	defer func() { snapshotRebuildDuration.Observe(time.Since(start).Seconds()) }()

	records, err := e.ratings.RatingsSince(ctx, season.StartDate)
	if err != nil {
		return 0, fmt.Errorf("load season ratings: %w", err)
	}

	rows := BuildSnapshot(season.ID, season.StartDate, records)
	if err := e.ratings.ReplaceSnapshot(ctx, season.ID, rows); err != nil {
		return 0, fmt.Errorf("replace snapshot: %w", err)
	}

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, season.ID); err != nil {
			e.logger.Warnw("Failed to invalidate snapshot cache", "season", season.ID, "error", err)
		}
	}
	return len(rows), nil
}
