package api

import (
	"net/http"
	"time"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/reports"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

type AnalyticsHandler struct {
	Engine  *analytics.Engine
	Reports *reports.Generator
	now     func() time.Time
}

func NewAnalyticsHandler(engine *analytics.Engine, gen *reports.Generator) *AnalyticsHandler {
	return &AnalyticsHandler{Engine: engine, Reports: gen, now: time.Now}
}

// GET /api/v1/dashboard/stats
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	win := timerange.ResolveDashboard(r.URL.Query().Get("timeRange"), h.now())
	stats, err := h.Engine.Dashboard(r.Context(), win)
	if err != nil {
		respondFailure(w, r, err, "Failed to fetch dashboard statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GET /api/v1/reports
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind, err := reports.ParseKind(q.Get("type"))
	if err != nil {
		respondFailure(w, r, err, "Failed to generate report")
		return
	}

	rep, err := h.Reports.Generate(r.Context(), reports.Request{
		Kind:      kind,
		TimeRange: q.Get("timeRange"),
		CameraID:  q.Get("cameraId"),
	})
	if err != nil {
		respondFailure(w, r, err, "Failed to generate report")
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
