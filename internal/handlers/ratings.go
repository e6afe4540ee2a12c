package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mapelo/forecast-api/internal/models"
)

// ProcessRatings folds all pending map results into the rating history
// @Summary Process Pending Results
// @Description Rates every unprocessed map result and rebuilds the active season snapshot
// @Tags Ratings
// @Produce json
// @Success 200 {object} models.ProcessSummary
// @Failure 422 {object} map[string]string "No active season"
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /ratings/process [post]
func (h *Handler) ProcessRatings(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ratings.ProcessPending(r.Context())
	if err != nil {
		h.serviceError(w, err, "Failed to process results")
		return
	}
	h.jsonResponse(w, http.StatusOK, summary)
}

// GetCurrentRatings returns the current snapshot of the active season
// @Summary Current Ratings
// @Tags Ratings
// @Produce json
// @Success 200 {array} models.CurrentRating
// @Failure 500 {object} map[string]string "Internal Error"
// @Router /ratings/current [get]
func (h *Handler) GetCurrentRatings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	season, err := h.seasons.EnsureActive(ctx)
	if err != nil {
		h.serviceError(w, err, "Failed to load active season")
		return
	}

	if h.cache != nil {
		rows, ok, err := h.cache.Get(ctx, season.ID)
		if err != nil {
			h.logger.Warnw("Snapshot cache read failed", "season", season.ID, "error", err)
		} else if ok {
			h.jsonResponse(w, http.StatusOK, rows)
			return
		}
	}

	rows, err := h.reader.Snapshot(ctx, season.ID)
	if err != nil {
		h.serviceError(w, err, "Failed to load ratings", "season", season.ID)
		return
	}
	if rows == nil {
		rows = []models.CurrentRating{}
	}
	if h.cache != nil {
		if err := h.cache.Put(ctx, season.ID, rows); err != nil {
			h.logger.Warnw("Snapshot cache write failed", "season", season.ID, "error", err)
		}
	}
	h.jsonResponse(w, http.StatusOK, rows)
}

// GetRatingAt returns a team's rating on a map at a point in time
// @Summary Rating Lookup
// @Tags Ratings
// @Produce json
// @Param teamId path int true "Team ID"
// @Param map path string true "Map name"
// @Param at query string false "RFC3339 timestamp or YYYY-MM-DD (default now)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /ratings/{teamId}/{map} [get]
func (h *Handler) GetRatingAt(w http.ResponseWriter, r *http.Request) {
	teamID, ok := parseInt64(chi.URLParam(r, "teamId"))
	if !ok {
		h.errorResponse(w, http.StatusBadRequest, "Invalid team ID")
		return
	}
	mapName := chi.URLParam(r, "map")
	if mapName == "" {
		h.errorResponse(w, http.StatusBadRequest, "Map is required")
		return
	}

	at, set, err := parseTimeParam(r, "at")
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid 'at' parameter")
		return
	}
	if !set {
		at = time.Now().UTC()
	}

	rating, err := h.ratings.RatingAt(r.Context(), teamID, mapName, at)
	if err != nil {
		h.serviceError(w, err, "Failed to look up rating", "team", teamID, "map", mapName)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"team_id":  teamID,
		"map_name": mapName,
		"at":       at,
		"rating":   rating,
	})
}
