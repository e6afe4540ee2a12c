package handlers

import (
	"net/http"

	"github.com/mapelo/forecast-api/internal/models"
)

// GetSeasons lists all seasons
// @Summary List Seasons
// @Tags Seasons
// @Produce json
// @Success 200 {array} models.Season
// @Router /seasons [get]
func (h *Handler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.reader.Seasons(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to list seasons")
		return
	}
	if seasons == nil {
		seasons = []models.Season{}
	}
	h.jsonResponse(w, http.StatusOK, seasons)
}

// CreateSeason ends the active season and starts a new one with baseline ratings
// @Summary Create Season
// @Tags Seasons
// @Accept json
// @Produce json
// @Param request body models.CreateSeasonRequest true "Season year"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 409 {object} map[string]string "Concurrent season change"
// @Router /seasons [post]
func (h *Handler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSeasonRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	season, written, err := h.seasons.CreateSeason(r.Context(), req.Year)
	if err != nil {
		h.serviceError(w, err, "Failed to create season", "year", req.Year)
		return
	}
	h.jsonResponse(w, http.StatusCreated, map[string]interface{}{
		"season":           season,
		"baseline_records": written,
	})
}

// ResetRatings wipes every rating and replays history from the reset year
// @Summary Reset All Ratings
// @Description Destructive. Requires {"confirm":"RESET"}.
// @Tags Seasons
// @Accept json
// @Produce json
// @Param request body models.ResetRequest true "Confirmation"
// @Success 200 {object} models.ResetSummary
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /ratings/reset [post]
func (h *Handler) ResetRatings(w http.ResponseWriter, r *http.Request) {
	var req models.ResetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	summary, err := h.seasons.ResetAll(r.Context(), req.Confirm)
	if err != nil {
		h.serviceError(w, err, "Failed to reset ratings")
		return
	}
	h.logger.Warnw("Ratings reset via API", "remote", r.RemoteAddr, "resultsReset", summary.ResultsReset)
	h.jsonResponse(w, http.StatusOK, summary)
}
