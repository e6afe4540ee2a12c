package models

import "time"

// RatingRecord is one append-only point in a team's rating history on a map.
// SourceResultID is nil for season baseline records.
type RatingRecord struct {
	TeamID         int64     `json:"team_id"`
	MapName        string    `json:"map_name"`
	Rating         float64   `json:"rating"`
	RatedAt        time.Time `json:"rated_at"`
	SourceResultID *int64    `json:"source_result_id,omitempty"`
}

// CurrentRating is a row of the per-season current snapshot
type CurrentRating struct {
	SeasonID int64     `json:"season_id"`
	TeamID   int64     `json:"team_id"`
	MapName  string    `json:"map_name"`
	Rating   float64   `json:"rating"`
	RatedAt  time.Time `json:"rated_at"`
}

// Season is a bounded rating window. Exactly one season is active at a time.
type Season struct {
	ID        int64      `json:"id"`
	Year      int        `json:"year"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Active    bool       `json:"active"`
}

// SeasonStart returns the first instant of the season for a year (Jan 1, UTC).
func SeasonStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// ProcessSummary describes one rating processing run
type ProcessSummary struct {
	Processed      int               `json:"processed"`
	Skipped        int               `json:"skipped"`
	RecordsWritten int               `json:"records_written"`
	SeasonID       int64             `json:"season_id"`
	SnapshotRows   int               `json:"snapshot_rows"`
	Issues         []ProcessingIssue `json:"issues,omitempty"`
}

// ResetSummary describes a full recomputation reset
type ResetSummary struct {
	ResultsReset    int64 `json:"results_reset"`
	BaselineRecords int   `json:"baseline_records"`
	YearsBaselined  []int `json:"years_baselined"`
}
