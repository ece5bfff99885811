package api

import (
	"net/http"

	"github.com/technosupport/incident-analytics/internal/health"
)

type HealthHandler struct {
	Service *health.Service
}

func NewHealthHandler(svc *health.Service) *HealthHandler {
	return &HealthHandler{Service: svc}
}

// GET /api/v1/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	rep := h.Service.Check(r.Context())
	status := http.StatusOK
	if rep.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, rep)
}
