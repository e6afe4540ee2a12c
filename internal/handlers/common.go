package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/store"
)

// Health check endpoint
// @Summary Liveness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
// @Summary Readiness probe
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]bool, len(h.checks))
	allHealthy := true
	for name, check := range h.checks {
		ok := check(ctx) == nil
		checks[name] = ok
		if !ok {
			allHealthy = false
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"ready":  allHealthy,
		"checks": checks,
	}
	if h.queue != nil {
		body["queueDepth"] = h.queue.QueueDepth()
	}
	h.jsonResponse(w, status, body)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.errorResponse(w, http.StatusBadRequest, "Invalid field: "+verrs[0].Field())
			return false
		}
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// serviceError maps domain errors to HTTP statuses. Unknown errors are logged and hidden.
func (h *Handler) serviceError(w http.ResponseWriter, err error, message string, keysAndValues ...interface{}) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, logic.ErrTournamentNotFound):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrSeasonConflict):
		h.errorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, logic.ErrInvalidTrials),
		errors.Is(err, logic.ErrInvalidBracket),
		errors.Is(err, logic.ErrInvalidTournament),
		errors.Is(err, logic.ErrUnknownFormat),
		errors.Is(err, logic.ErrPoolSize),
		errors.Is(err, logic.ErrObservedMismatch),
		errors.Is(err, logic.ErrSeasonOrder),
		errors.Is(err, logic.ErrResetNotConfirmed):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, logic.ErrNoActualResults),
		errors.Is(err, logic.ErrFirstMoverUnknown),
		errors.Is(err, logic.ErrNoActiveSeason):
		h.errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Errorw(message, append(keysAndValues, "error", err)...)
		h.errorResponse(w, http.StatusInternalServerError, message)
	}
}

func parseInt64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 10, 64)
	return v, err == nil
}

// parseTimeParam reads an RFC3339 or YYYY-MM-DD query parameter
func parseTimeParam(r *http.Request, key string) (time.Time, bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
