package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/models"
)

// ReconcileVetoes proposes acting teams for veto actions recorded without one
// @Summary Reconcile Veto Actors
// @Description Suggestions only; nothing is written back
// @Tags Vetoes
// @Produce json
// @Param matchId path int true "Match ID"
// @Param first_mover query int false "Team that acted first"
// @Success 200 {array} models.VetoAssignment
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 422 {object} map[string]string "First mover unknown"
// @Router /vetoes/{matchId}/reconcile [get]
func (h *Handler) ReconcileVetoes(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseInt64(chi.URLParam(r, "matchId"))
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "Invalid match ID")
		return
	}

	resolver := h.firstMover
	if raw := r.URL.Query().Get("first_mover"); raw != "" {
		team, ok := parseInt64(raw)
		if !ok {
			h.errorResponse(w, http.StatusBadRequest, "Invalid first_mover")
			return
		}
		resolver = logic.StaticFirstMover{matchID: team}
	}

	assignments, err := logic.ReconcileMatch(r.Context(), h.vetoes, resolver, matchID)
	if err != nil {
		h.serviceError(w, err, "Failed to reconcile vetoes", "match", matchID)
		return
	}
	if assignments == nil {
		assignments = []models.VetoAssignment{}
	}
	h.jsonResponse(w, http.StatusOK, assignments)
}

// AnalyzeVetoes scores drafts of completed matches against the ratings of the day
// @Summary Analyze Veto Optimality
// @Tags Vetoes
// @Produce json
// @Param since query string false "RFC3339 timestamp or YYYY-MM-DD (default: start of current season)"
// @Success 200 {object} models.OptimalityReport
// @Router /vetoes/analyze [post]
func (h *Handler) AnalyzeVetoes(w http.ResponseWriter, r *http.Request) {
	since, set, err := parseTimeParam(r, "since")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid 'since' parameter")
		return
	}
	if !set {
		since = models.SeasonStart(time.Now().UTC().Year())
	}

	report, err := h.analyzer.Analyze(r.Context(), since)
	if err != nil {
		h.serviceError(w, err, "Failed to analyze vetoes", "since", since)
		return
	}
	h.jsonResponse(w, http.StatusOK, report)
}
