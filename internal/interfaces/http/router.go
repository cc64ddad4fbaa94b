// Package http exposes the featurization service over a chi router.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molgraph/internal/interfaces/http/handlers"
	"github.com/turtacn/molgraph/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	GraphHandler  *handlers.GraphHandler
	HealthHandler *handlers.HealthHandler

	Logger         logging.Logger
	LoggingConfig  middleware.LoggingConfig
	HTTPMetrics    middleware.HTTPRecorder
	RequestTimeout time.Duration

	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.LoggingConfig))
	}
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RequestTimeout > 0 {
			api.Use(chimw.Timeout(cfg.RequestTimeout))
		}
		registerGraphRoutes(api, cfg.GraphHandler)
	})

	return r
}

// registerGraphRoutes mounts the featurization endpoints.
func registerGraphRoutes(r chi.Router, h *handlers.GraphHandler) {
	if h == nil {
		return
	}
	r.Get("/schema", h.Schema)
	r.Route("/graphs", func(gr chi.Router) {
		gr.Post("/", h.Build)
		gr.Post("/batch", h.BuildBatch)
	})
}
