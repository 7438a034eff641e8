package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saintber/extensions/internal/infrastructure/observability"
	customMW "github.com/saintber/extensions/internal/middleware"
	"github.com/saintber/extensions/pkg/di"
	"go.opentelemetry.io/otel/trace"
)

type RouterDeps struct {
	Provider       *di.Provider
	DB             Pinger
	Metrics        *observability.Metrics
	TracerProvider trace.TracerProvider
	RateLimit      int
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing(deps.TracerProvider))
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	if deps.Metrics != nil {
		r.Use(customMW.Metrics(deps.Metrics))
	}

	healthH := NewHealthController(deps.DB)
	counterH := NewCounterController()

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(di.ScopeMiddleware(deps.Provider))

		limit := customMW.RateLimit(deps.RateLimit)

		r.Get("/counters", counterH.List)
		r.Get("/counters/{name}", counterH.Get)
		r.With(limit).Post("/counters/{name}/increment", counterH.Increment)
		r.With(limit).Post("/counters/increment", counterH.IncrementMany)
		r.With(limit).Post("/counters/reset", counterH.Reset)
	})

	return r
}
