package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/export"
	"github.com/technosupport/incident-analytics/internal/logging"
	"github.com/technosupport/incident-analytics/internal/reports"
	"github.com/technosupport/incident-analytics/internal/search"
)

// Helpers
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// inputErrors are the domain sentinels that mean the caller sent bad input.
var inputErrors = []error{
	reports.ErrUnknownReportType,
	alerts.ErrInvalidSeverity,
	search.ErrQueryRequired,
	search.ErrInvalidScope,
	export.ErrInvalidFormat,
}

// respondFailure maps err to 400, 503 or 500. fallback is the client-facing
// message for unexpected failures; the detail only goes to the log.
func respondFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var pe *paramError
	if errors.As(err, &pe) {
		respondError(w, http.StatusBadRequest, pe.Error())
		return
	}
	for _, sentinel := range inputErrors {
		if errors.Is(err, sentinel) {
			respondError(w, http.StatusBadRequest, sentinel.Error())
			return
		}
	}
	if errors.Is(err, data.ErrStoreUnavailable) {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("[API] store unavailable")
		respondError(w, http.StatusServiceUnavailable, "Incident store temporarily unavailable")
		return
	}
	logging.Ctx(r.Context()).Error().Err(err).Msg("[API] " + fallback)
	respondError(w, http.StatusInternalServerError, fallback)
}
