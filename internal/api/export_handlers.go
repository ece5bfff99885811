package api

import (
	"fmt"
	"net/http"

	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/export"
	"github.com/technosupport/incident-analytics/internal/logging"
)

type ExportHandler struct {
	Exporter *export.Exporter
}

func NewExportHandler(e *export.Exporter) *ExportHandler {
	return &ExportHandler{Exporter: e}
}

func parseFilters(r *http.Request) (export.Filters, error) {
	q := r.URL.Query()
	var (
		f   export.Filters
		err error
	)
	if f.Resolved, err = boolParam(q, "resolved"); err != nil {
		return f, err
	}
	if f.StartDate, err = dateParam(q, "startDate"); err != nil {
		return f, err
	}
	if f.EndDate, err = dateParam(q, "endDate"); err != nil {
		return f, err
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, &paramError{name: "endDate", msg: "must not be before startDate"}
	}
	f.CameraID = q.Get("cameraId")
	if t := q.Get("type"); t != "" {
		if !data.IncidentType(t).Valid() {
			return f, &paramError{name: "type", msg: fmt.Sprintf("%q is not an incident type", t)}
		}
		f.Type = t
	}
	return f, nil
}

// GET /api/v1/incidents/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondFailure(w, r, err, "Failed to export incidents")
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		respondFailure(w, r, err, "Failed to export incidents")
		return
	}

	doc, err := h.Exporter.Collect(r.Context(), filters)
	if err != nil {
		respondFailure(w, r, err, "Failed to export incidents")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.Exporter.Filename(format)))
	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		err = export.WriteCSV(w, doc)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = export.WriteJSON(w, doc)
	}
	if err != nil {
		// Headers are gone; all that is left is to log.
		logging.Ctx(r.Context()).Error().Err(err).Msg("[API] export write failed")
	}
}
