package models

// IssueKind classifies a data problem reported to operators
type IssueKind string

const (
	IssueMissingTimestamp IssueKind = "missing_timestamp"
	IssueInvalidResult    IssueKind = "invalid_result"
	IssueMissingMapPool   IssueKind = "missing_map_pool"
	IssueNullVetoTeam     IssueKind = "null_veto_team"
	IssueUnknownVetoTeam  IssueKind = "unknown_veto_team"
	IssueUnavailableMap   IssueKind = "unavailable_veto_map"
	IssueIncompleteVeto   IssueKind = "incomplete_veto"
	IssueMissingRating    IssueKind = "missing_rating"
)

// ProcessingIssue is an operator-visible failure tied to the affected entity.
type ProcessingIssue struct {
	Kind     IssueKind `json:"kind"`
	EntityID int64     `json:"entity_id"`
	Detail   string    `json:"detail,omitempty"`
}
