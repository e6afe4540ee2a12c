package models

import "time"

// Team is a competitive roster. Teams are owned by the store and never mutated by rating code.
type Team struct {
	ID     int64  `json:"id" yaml:"id"`
	Slug   string `json:"slug" yaml:"slug"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`
}

// MapResult is one played map between two teams
type MapResult struct {
	ID           int64      `json:"id"`
	MatchID      int64      `json:"match_id"`
	MapName      string     `json:"map_name"`
	WinnerID     int64      `json:"winner_id"`
	LoserID      int64      `json:"loser_id"`
	WinnerRounds int        `json:"winner_rounds"`
	LoserRounds  int        `json:"loser_rounds"`
	CompletedAt  *time.Time `json:"completed_at"`
	Processed    bool       `json:"processed"`
}
