package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/export"
	"github.com/technosupport/incident-analytics/internal/health"
	"github.com/technosupport/incident-analytics/internal/metrics"
	"github.com/technosupport/incident-analytics/internal/middleware"
	"github.com/technosupport/incident-analytics/internal/reports"
	"github.com/technosupport/incident-analytics/internal/search"
)

type Deps struct {
	Engine   *analytics.Engine
	Reports  *reports.Generator
	Alerts   *alerts.Synthesizer
	Search   *search.Engine
	Exporter *export.Exporter
	Health   *health.Service

	// Optional.
	Metrics   *metrics.Collector
	RateLimit *middleware.RateLimitMiddleware

	AllowedOrigins    []string
	AlertDefaultLimit int
	StreamInterval    time.Duration
}

// NewRouter wires every read-only endpoint. Health and /metrics sit outside
// the rate limiter.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.CORS(d.AllowedOrigins))

	analyticsH := NewAnalyticsHandler(d.Engine, d.Reports)
	alertH := NewAlertHandler(d.Alerts, d.AlertDefaultLimit, d.StreamInterval, d.AllowedOrigins)
	searchH := NewSearchHandler(d.Search)
	exportH := NewExportHandler(d.Exporter)
	healthH := NewHealthHandler(d.Health)

	r.Get("/api/v1/health", healthH.GetHealth)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.GlobalLimiter)
		}
		r.Get("/api/v1/dashboard/stats", analyticsH.Dashboard)
		r.Get("/api/v1/reports", analyticsH.Report)
		r.Get("/api/v1/alerts", alertH.List)
		r.Get("/api/v1/alerts/stream", alertH.Stream)
		r.Get("/api/v1/search", searchH.Search)
		r.Get("/api/v1/incidents/export", exportH.Export)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
