package models

import "time"

// VetoKind is the type of a draft action
type VetoKind string

const (
	VetoBan     VetoKind = "ban"
	VetoPick    VetoKind = "pick"
	VetoDecider VetoKind = "decider"
)

// VetoAction is one recorded step of a map draft. OrderIndex starts at 1 per match.
// TeamID is nil for deciders, and for badly recorded bans/picks.
type VetoAction struct {
	MatchID    int64    `json:"match_id"`
	TeamID     *int64   `json:"team_id"`
	Action     VetoKind `json:"action"`
	MapName    string   `json:"map_name"`
	OrderIndex int      `json:"order_index"`
}

// CompletedMatch is a finished series together with its recorded draft
type CompletedMatch struct {
	ID       int64        `json:"id"`
	TeamAID  int64        `json:"team_a_id"`
	TeamBID  int64        `json:"team_b_id"`
	PlayedAt time.Time    `json:"played_at"`
	Vetoes   []VetoAction `json:"vetoes"`
}

// VetoAssignment proposes an acting team for a veto action with a missing team id
type VetoAssignment struct {
	MatchID    int64 `json:"match_id"`
	OrderIndex int   `json:"order_index"`
	TeamID     int64 `json:"team_id"`
}

// OptimalityScore is the rating value a team gave away across one draft
type OptimalityScore struct {
	MatchID        int64     `json:"match_id"`
	TeamID         int64     `json:"team_id"`
	RatingLost     float64   `json:"rating_lost"`
	ScoredActions  int       `json:"scored_actions"`
	SkippedActions int       `json:"skipped_actions"`
	PlayedAt       time.Time `json:"played_at"`
}

// OptimalityReport summarises one analyzer run
type OptimalityReport struct {
	MatchesScored  int               `json:"matches_scored"`
	MatchesSkipped int               `json:"matches_skipped"`
	Scores         []OptimalityScore `json:"scores"`
	Issues         []ProcessingIssue `json:"issues,omitempty"`
}
