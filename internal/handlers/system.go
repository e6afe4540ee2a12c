package handlers

import (
	"net/http"

	"github.com/swaggo/swag"
)

// InstallDatabase creates the PostgreSQL and ClickHouse schemas
// @Summary Install Database Schema
// @Description Applies embedded migrations for PostgreSQL and ClickHouse
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /system/install [post]
func (h *Handler) InstallDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results := make(map[string]string, len(h.installers))
	hasError := false
	for name, install := range h.installers {
		if err := install(ctx); err != nil {
			h.logger.Errorw("Schema install failed", "db", name, "error", err)
			results[name] = "failed: " + err.Error()
			hasError = true
			continue
		}
		results[name] = "success"
	}

	statusCode := http.StatusOK
	if hasError {
		statusCode = http.StatusInternalServerError
	}

	h.jsonResponse(w, statusCode, map[string]interface{}{
		"status":  "completed",
		"results": results,
		"error":   hasError,
	})
}

// SwaggerDoc serves the generated OpenAPI document
func (h *Handler) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		h.errorResponse(w, http.StatusNotFound, "API documentation not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}
