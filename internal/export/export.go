// Package export writes filtered incident listings as JSON or CSV.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/technosupport/incident-analytics/internal/data"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

var ErrInvalidFormat = errors.New("invalid export format. Supported formats: json, csv")

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// Filters echoes the request back in the JSON envelope.
type Filters struct {
	Resolved  *bool      `json:"resolved"`
	CameraID  string     `json:"cameraId,omitempty"`
	Type      string     `json:"type,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

func (f Filters) IncidentFilter() data.IncidentFilter {
	return data.IncidentFilter{
		Resolved:   f.Resolved,
		CameraID:   f.CameraID,
		Type:       data.IncidentType(f.Type),
		TsStartGte: f.StartDate,
		TsStartLte: f.EndDate,
	}
}

type Row struct {
	ID              string            `json:"id"`
	Type            data.IncidentType `json:"type"`
	Camera          *data.Camera      `json:"camera"`
	TsStart         time.Time         `json:"tsStart"`
	TsEnd           time.Time         `json:"tsEnd"`
	DurationMinutes int64             `json:"durationMinutes"`
	ThumbnailURL    string            `json:"thumbnailUrl,omitempty"`
	Resolved        bool              `json:"resolved"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type Document struct {
	ExportDate     time.Time `json:"exportDate"`
	TotalIncidents int       `json:"totalIncidents"`
	Filters        Filters   `json:"filters"`
	Incidents      []Row     `json:"incidents"`
}

type Exporter struct {
	store      data.IncidentStore
	maxRecords int
	now        func() time.Time
}

func NewExporter(store data.IncidentStore, maxRecords int) *Exporter {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &Exporter{store: store, maxRecords: maxRecords, now: time.Now}
}

// Collect reads up to maxRecords matching incidents, newest first.
func (e *Exporter) Collect(ctx context.Context, f Filters) (*Document, error) {
	incs, err := e.store.ListIncidents(ctx, f.IncidentFilter(), data.ListOptions{Limit: e.maxRecords, WithCamera: true})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(incs))
	for i, inc := range incs {
		rows[i] = Row{
			ID:              inc.ID,
			Type:            inc.Type,
			Camera:          inc.Camera,
			TsStart:         inc.TsStart,
			TsEnd:           inc.TsEnd,
			DurationMinutes: durationMinutes(inc),
			ThumbnailURL:    inc.ThumbnailURL,
			Resolved:        inc.Resolved,
			CreatedAt:       inc.CreatedAt,
			UpdatedAt:       inc.UpdatedAt,
		}
	}
	return &Document{
		ExportDate:     e.now().UTC(),
		TotalIncidents: len(rows),
		Filters:        f,
		Incidents:      rows,
	}, nil
}

func durationMinutes(i data.Incident) int64 {
	return int64(i.TsEnd.Sub(i.TsStart).Minutes() + 0.5)
}

func (e *Exporter) Filename(f Format) string {
	return fmt.Sprintf("incidents-export-%s.%s", e.now().UTC().Format("2006-01-02"), f)
}

func WriteJSON(w io.Writer, doc *Document) error {
	return json.NewEncoder(w).Encode(doc)
}

var csvHeader = []string{
	"ID", "Type", "Camera Name", "Camera Location", "Start Time", "End Time",
	"Duration (minutes)", "Resolved", "Created At", "Updated At",
}

func WriteCSV(w io.Writer, doc *Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range doc.Incidents {
		var name, loc string
		if r.Camera != nil {
			name, loc = r.Camera.Name, r.Camera.Location
		}
		resolved := "No"
		if r.Resolved {
			resolved = "Yes"
		}
		rec := []string{
			r.ID, string(r.Type), name, loc,
			r.TsStart.UTC().Format(time.RFC3339), r.TsEnd.UTC().Format(time.RFC3339),
			strconv.FormatInt(r.DurationMinutes, 10), resolved,
			r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
