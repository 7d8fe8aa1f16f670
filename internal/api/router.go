package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Verdant/internal/pipeline"
)

func NewRouter(runner *pipeline.Runner, adminToken string, ratePerMinute int, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(ratePerMinute))

	runs := NewRunsHandler(runner)
	profiles := NewProfilesHandler(runner.Config())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminToken))

		r.Post("/evaluate", runs.Evaluate)
		r.Post("/advise", runs.Advise)
		r.Post("/compliance", runs.Compliance)
		r.Post("/kpi", runs.KPI)

		r.Get("/profiles", profiles.List)
		r.Get("/profiles/{name}", profiles.Get)
	})

	return r
}

func NewMetricsRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}
