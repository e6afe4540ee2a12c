package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes builds the HTTP router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/doc.json", h.SwaggerDoc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Minute))

		r.Post("/system/install", h.InstallDatabase)

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/process", h.ProcessRatings)
			r.Post("/reset", h.ResetRatings)
			r.Get("/current", h.GetCurrentRatings)
			r.Get("/{teamId}/{map}", h.GetRatingAt)
		})

		r.Get("/seasons", h.GetSeasons)
		r.Post("/seasons", h.CreateSeason)

		r.Get("/tournaments/{id}", h.GetTournament)

		r.Route("/simulations", func(r chi.Router) {
			r.Post("/", h.RunSimulation)
			r.Get("/{id}", h.GetSimulation)
			r.Get("/{id}/backtest", h.BacktestSimulation)
		})

		r.Route("/vetoes", func(r chi.Router) {
			r.Post("/analyze", h.AnalyzeVetoes)
			r.Get("/{matchId}/reconcile", h.ReconcileVetoes)
		})
	})

	return r
}
