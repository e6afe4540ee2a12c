package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mapelo/forecast-api/internal/models"
)

// ============================================================================
// TOURNAMENT FORECAST ENDPOINTS
// ============================================================================

// GetTournament returns a tournament config
// @Summary Get Tournament Config
// @Tags Tournaments
// @Produce json
// @Param id path string true "Tournament ID"
// @Success 200 {object} models.TournamentConfig
// @Failure 404 {object} map[string]string "Not Found"
// @Router /tournaments/{id} [get]
func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.errorResponse(w, http.StatusBadRequest, "Missing tournament ID")
		return
	}

	t, err := h.tournaments.Tournament(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get tournament", "id", id)
		return
	}
	h.jsonResponse(w, http.StatusOK, t)
}

// RunSimulation runs a Monte-Carlo forecast, inline or on the worker pool
// @Summary Simulate Tournament
// @Description With "async": true the job is queued and 202 is returned with its id
// @Tags Simulations
// @Accept json
// @Produce json
// @Param request body models.RunSimulationRequest true "Simulation request"
// @Success 200 {object} models.SimulationArtifact
// @Success 202 {object} models.SimulationAccepted
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 503 {object} map[string]string "Queue full"
// @Router /simulations [post]
func (h *Handler) RunSimulation(w http.ResponseWriter, r *http.Request) {
	var req models.RunSimulationRequest
	// trials may be omitted
	req.Trials = h.defaultTrials
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Async {
		if h.queue == nil {
			h.errorResponse(w, http.StatusServiceUnavailable, "Async simulations are disabled")
			return
		}
		id, ok := h.queue.Enqueue(req)
		if !ok {
			h.errorResponse(w, http.StatusServiceUnavailable, "Simulation queue full")
			return
		}
		h.jsonResponse(w, http.StatusAccepted, models.SimulationAccepted{ID: id, Status: models.SimulationQueued})
		return
	}

	artifact, err := h.simulations.RunSimulation(r.Context(), req)
	if err != nil {
		h.serviceError(w, err, "Failed to run simulation", "tournament", req.TournamentID)
		return
	}
	h.jsonResponse(w, http.StatusOK, artifact)
}

// GetSimulation returns a stored simulation or the status of a queued one
// @Summary Get Simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} models.SimulationJobStatus
// @Failure 404 {object} map[string]string "Not Found"
// @Router /simulations/{id} [get]
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid simulation ID")
		return
	}

	if h.queue != nil {
		if st, ok := h.queue.Status(id); ok && st.Status != models.SimulationDone {
			h.jsonResponse(w, http.StatusOK, st)
			return
		}
	}

	artifact, err := h.simulations.GetSimulation(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to get simulation", "id", id)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.SimulationJobStatus{
		ID:       id,
		Status:   models.SimulationDone,
		Artifact: artifact,
	})
}

// BacktestSimulation scores a stored simulation against the recorded outcome
// @Summary Back-test Simulation
// @Tags Simulations
// @Produce json
// @Param id path string true "Simulation ID"
// @Success 200 {object} models.BacktestScore
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 422 {object} map[string]string "No recorded outcome"
// @Router /simulations/{id}/backtest [get]
func (h *Handler) BacktestSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid simulation ID")
		return
	}

	score, err := h.simulations.Backtest(r.Context(), id)
	if err != nil {
		h.serviceError(w, err, "Failed to back-test simulation", "id", id)
		return
	}
	h.jsonResponse(w, http.StatusOK, score)
}
