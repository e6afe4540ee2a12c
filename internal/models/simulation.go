package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamOdds holds placement probabilities (percent) for one team
type TeamOdds struct {
	TeamID        int64   `json:"team_id"`
	Team          string  `json:"team"`
	Championships float64 `json:"championships"`
	Finalist      float64 `json:"finalist"`
	Top3          float64 `json:"top3"`
	Top4          float64 `json:"top4"`
	Top6          float64 `json:"top6"`
	Top8          float64 `json:"top8"`
	Top12         float64 `json:"top12"`
}

// MissingRating flags a team/map pair simulated with the default rating
type MissingRating struct {
	TeamID  int64  `json:"team_id"`
	MapName string `json:"map_name"`
}

// SimulationArtifact is the persisted record of a simulation, used for back-testing
type SimulationArtifact struct {
	ID                 uuid.UUID       `json:"id"`
	TournamentID       string          `json:"tournament_id"`
	Name               string          `json:"name"`
	SimulatedAt        time.Time       `json:"simulated_at"`
	RatingSnapshotDate time.Time       `json:"rating_snapshot_date"`
	NumTrials          int             `json:"num_trials"`
	Seed               uint64          `json:"seed"`
	Results            []TeamOdds      `json:"results"`
	MissingRatings     []MissingRating `json:"missing_ratings,omitempty"`
	ActualResults      *ActualResults  `json:"actual_results,omitempty"`
}

// BacktestScore compares a stored prediction against the real outcome
type BacktestScore struct {
	TournamentID        string  `json:"tournament_id"`
	ChampionProbability float64 `json:"champion_probability"`
	RunnerUpFinalist    float64 `json:"runner_up_finalist"`
	BrierScore          float64 `json:"brier_score"`
	Top4Hits            int     `json:"top4_hits"`
	Top4HitRate         float64 `json:"top4_hit_rate"`
}

// SimulationStatus tracks an asynchronous simulation job
type SimulationStatus string

const (
	SimulationQueued  SimulationStatus = "queued"
	SimulationRunning SimulationStatus = "running"
	SimulationDone    SimulationStatus = "done"
	SimulationFailed  SimulationStatus = "failed"
)
