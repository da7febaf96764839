// Package http exposes the derived case review views over a chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CaseLens/internal/interfaces/http/handlers"
	"github.com/turtacn/CaseLens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	CaseHandler     *handlers.CaseHandler
	DocumentHandler *handlers.DocumentHandler
	HealthHandler   *handlers.HealthHandler

	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.ReviewMetrics
	MaxBodySize      int64
}

// NewRouter builds the route tree: probes and /metrics at the root, the
// review API under /api/v1.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerCaseRoutes(api, cfg.CaseHandler, cfg.Metrics)
		registerDocumentRoutes(api, cfg.DocumentHandler, cfg.Metrics)
	})
	return r
}

// instrument labels requests with the route pattern, never the raw path.
func instrument(m *prometheus.ReviewMetrics, route string, h http.HandlerFunc) http.Handler {
	if m == nil {
		return h
	}
	return m.InstrumentHandler(route, h)
}

func registerCaseRoutes(r chi.Router, h *handlers.CaseHandler, m *prometheus.ReviewMetrics) {
	if h == nil {
		return
	}
	r.Method(http.MethodPost, "/cases/ingest", instrument(m, "/cases/ingest", h.Ingest))
	r.Route("/cases/{caseID}", func(cr chi.Router) {
		cr.Method(http.MethodGet, "/groups", instrument(m, "/cases/{id}/groups", h.ListGroups))
		cr.Method(http.MethodGet, "/groups/{groupID}/why", instrument(m, "/cases/{id}/groups/{gid}/why", h.GetWhy))
		cr.Method(http.MethodGet, "/groups/{groupID}/evidence", instrument(m, "/cases/{id}/groups/{gid}/evidence", h.GetEvidence))
		cr.Method(http.MethodGet, "/timeline", instrument(m, "/cases/{id}/timeline", h.GetTimeline))
		cr.Method(http.MethodGet, "/feed", instrument(m, "/cases/{id}/feed", h.GetFeed))
		cr.Method(http.MethodGet, "/summary", instrument(m, "/cases/{id}/summary", h.GetSummary))
	})
}

func registerDocumentRoutes(r chi.Router, h *handlers.DocumentHandler, m *prometheus.ReviewMetrics) {
	if h == nil {
		return
	}
	r.Method(http.MethodGet, "/documents/{documentID}/pages/{page}", instrument(m, "/documents/{id}/pages/{page}", h.GetPage))
}
