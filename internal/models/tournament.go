package models

import "time"

// SeriesFormat names a best-of-N draft sequence
type SeriesFormat string

const (
	FormatBO1    SeriesFormat = "BO1"
	FormatBO3    SeriesFormat = "BO3"
	FormatBO5    SeriesFormat = "BO5"
	FormatBO5Adv SeriesFormat = "BO5_ADV"
)

// BracketKind selects a bracket builder
type BracketKind string

const (
	SingleElimination BracketKind = "single_elimination"
	DoubleElimination BracketKind = "double_elimination"
	CustomBracket     BracketKind = "custom"
)

// BracketSpec describes the bracket shape of a tournament.
// RoundFormats lists upper bracket (or single elimination) rounds, first round first.
type BracketSpec struct {
	Kind             BracketKind    `json:"kind" yaml:"kind"`
	RoundFormats     []SeriesFormat `json:"round_formats" yaml:"round_formats"`
	LowerFormat      SeriesFormat   `json:"lower_format,omitempty" yaml:"lower_format"`
	GrandFinalFormat SeriesFormat   `json:"grand_final_format,omitempty" yaml:"grand_final_format"`
	ThirdPlaceMatch  bool           `json:"third_place_match,omitempty" yaml:"third_place_match"`
	Matches          []BracketMatch `json:"matches,omitempty" yaml:"matches"`
}

// Slot is one side of a bracket match: either a seed (0-based index into the
// tournament's team list) or the winner/loser of an earlier match.
type Slot struct {
	Seed  int    `json:"seed" yaml:"seed"`
	From  string `json:"from,omitempty" yaml:"from"`
	Loser bool   `json:"loser,omitempty" yaml:"loser"`
}

// BracketMatch is one scheduled series. A non-zero WinnerPlace/LoserPlace means
// that side leaves the bracket here with that final placement.
type BracketMatch struct {
	ID          string       `json:"id" yaml:"id"`
	Round       int          `json:"round" yaml:"round"`
	Format      SeriesFormat `json:"format" yaml:"format"`
	A           Slot         `json:"a" yaml:"a"`
	B           Slot         `json:"b" yaml:"b"`
	WinnerPlace int          `json:"winner_place,omitempty" yaml:"winner_place"`
	LoserPlace  int          `json:"loser_place,omitempty" yaml:"loser_place"`
}

// Bracket is an ordered match list; every slot references an earlier match.
type Bracket struct {
	Matches []BracketMatch `json:"matches"`
}

// ObservedResult pins the winner of an already played bracket match
type ObservedResult struct {
	MatchID  string `json:"match_id" yaml:"match_id"`
	WinnerID int64  `json:"winner_id" yaml:"winner_id"`
}

// TournamentConfig is the read-only input to a simulation run.
// Teams are listed in seed order.
type TournamentConfig struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	StartDate time.Time        `json:"start_date" yaml:"start_date"`
	Teams     []Team           `json:"teams" yaml:"teams"`
	MapPool   []string         `json:"map_pool" yaml:"map_pool"`
	Bracket   BracketSpec      `json:"bracket" yaml:"bracket"`
	Observed  []ObservedResult `json:"observed,omitempty" yaml:"observed"`
	Actual    *ActualResults   `json:"actual_results,omitempty" yaml:"actual_results"`
}

// ActualResults records the real outcome of a finished tournament for back-testing
type ActualResults struct {
	Winner     int64   `json:"winner" yaml:"winner"`
	RunnerUp   int64   `json:"runner_up" yaml:"runner_up"`
	ThirdPlace *int64  `json:"third_place,omitempty" yaml:"third_place"`
	Top4       []int64 `json:"top4,omitempty" yaml:"top4"`
}
