package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/models"
)

// OptimalityWriter appends veto optimality scores to ClickHouse for reporting
type OptimalityWriter struct {
	ch     driver.Conn
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewOptimalityWriter(ch driver.Conn, logger *zap.SugaredLogger) *OptimalityWriter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &OptimalityWriter{ch: ch, logger: logger, now: time.Now}
}

func (w *OptimalityWriter) WriteScores(ctx context.Context, scores []models.OptimalityScore) error {
	if len(scores) == 0 {
		return nil
	}

	batch, err := w.ch.PrepareBatch(ctx, `
		INSERT INTO veto_optimality (
			match_id, team_id, rating_lost, scored_actions, skipped_actions, played_at, analyzed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare optimality batch: %w", err)
	}

	analyzedAt := w.now().UTC()
	for _, s := range scores {
		if err := batch.Append(
			uint64(s.MatchID),
			uint64(s.TeamID),
			s.RatingLost,
			uint32(s.ScoredActions),
			uint32(s.SkippedActions),
			s.PlayedAt,
			analyzedAt,
		); err != nil {
			w.logger.Errorw("Failed to append optimality score", "match", s.MatchID, "team", s.TeamID, "error", err)
			return fmt.Errorf("append optimality score: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send optimality batch: %w", err)
	}
	w.logger.Infow("Optimality scores written", "rows", len(scores))
	return nil
}
