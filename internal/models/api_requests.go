package models

import "github.com/google/uuid"

type RunSimulationRequest struct {
	Trials       int               `json:"trials" validate:"required,gt=0"`
	TournamentID string            `json:"tournament_id" validate:"required_without=Config"`
	Config       *TournamentConfig `json:"config" validate:"required_without=TournamentID"`
	Seed         *uint64           `json:"seed"`
	Async        bool              `json:"async"`
	// ID is assigned by the server for asynchronous runs
	ID uuid.UUID `json:"-"`
}

type CreateSeasonRequest struct {
	Year int `json:"year" validate:"required,gte=2000,lte=2100"`
}

type ResetRequest struct {
	Confirm string `json:"confirm" validate:"required,eq=RESET"`
}

type SimulationAccepted struct {
	ID     uuid.UUID        `json:"id"`
	Status SimulationStatus `json:"status"`
}

type SimulationJobStatus struct {
	ID       uuid.UUID           `json:"id"`
	Status   SimulationStatus    `json:"status"`
	Error    string              `json:"error,omitempty"`
	Artifact *SimulationArtifact `json:"artifact,omitempty"`
}
