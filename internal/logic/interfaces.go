package logic

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mapelo/forecast-api/internal/models"
)

// MatchStore reads pending map results and commits processed ones
type MatchStore interface {
	// PendingResults returns unprocessed results ordered by completion time ascending
	PendingResults(ctx context.Context) ([]models.MapResult, error)
	// CommitResult appends rating records and marks the result processed atomically
	CommitResult(ctx context.Context, resultID int64, records []models.RatingRecord) error
	MarkAllUnprocessed(ctx context.Context) (int64, error)
}

// RatingStore holds rating history and the current snapshot
type RatingStore interface {
	// LatestRating returns the newest record with notBefore <= rated_at < before, or nil
	LatestRating(ctx context.Context, teamID int64, mapName string, before, notBefore time.Time) (*models.RatingRecord, error)
	RatingsSince(ctx context.Context, since time.Time) ([]models.RatingRecord, error)
	AppendRatings(ctx context.Context, records []models.RatingRecord) error
	// DeleteAllRatings drops every rating record and snapshot row
	DeleteAllRatings(ctx context.Context) error
	// ReplaceSnapshot swaps a season's snapshot rows all-or-nothing
	ReplaceSnapshot(ctx context.Context, seasonID int64, rows []models.CurrentRating) error
	Snapshot(ctx context.Context, seasonID int64) ([]models.CurrentRating, error)
}

// SeasonStore persists seasons. SwapActiveSeason is a compare-and-swap on the
// active season id (0 when no season is active).
type SeasonStore interface {
	ActiveSeason(ctx context.Context) (*models.Season, error)
	SwapActiveSeason(ctx context.Context, expectedActiveID int64, next models.Season, endedAt time.Time) (*models.Season, error)
	Seasons(ctx context.Context) ([]models.Season, error)
}

type TeamStore interface {
	ActiveTeams(ctx context.Context) ([]models.Team, error)
}

type VetoStore interface {
	CompletedMatches(ctx context.Context, since time.Time) ([]models.CompletedMatch, error)
	CompletedMatch(ctx context.Context, id int64) (*models.CompletedMatch, error)
}

type ArtifactStore interface {
	SaveArtifact(ctx context.Context, artifact *models.SimulationArtifact) error
	Artifact(ctx context.Context, id uuid.UUID) (*models.SimulationArtifact, error)
}

// OptimalitySink receives analyzer output for downstream reporting
type OptimalitySink interface {
	WriteScores(ctx context.Context, scores []models.OptimalityScore) error
}

type TournamentProvider interface {
	Tournament(ctx context.Context, id string) (*models.TournamentConfig, error)
}

// SnapshotCache caches the current snapshot of a season
type SnapshotCache interface {
	Get(ctx context.Context, seasonID int64) ([]models.CurrentRating, bool, error)
	Put(ctx context.Context, seasonID int64, rows []models.CurrentRating) error
	Invalidate(ctx context.Context, seasonID int64) error
}

// Store is the full Match/Rating Store surface
type Store interface {
	MatchStore
	RatingStore
	SeasonStore
	TeamStore
	VetoStore
	ArtifactStore
}
