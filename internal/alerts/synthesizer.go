package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/data"
)

// ThresholdSource returns the current thresholds; config reloads swap it.
type ThresholdSource func() Thresholds

type Query struct {
	Severity Severity
	Limit    int
}

type Synthesizer struct {
	engine     *analytics.Engine
	thresholds ThresholdSource
	now        func() time.Time
}

func NewSynthesizer(engine *analytics.Engine, thresholds ThresholdSource) *Synthesizer {
	if thresholds == nil {
		thresholds = DefaultThresholds
	}
	return &Synthesizer{engine: engine, thresholds: thresholds, now: time.Now}
}

// Synthesize builds every alert, then filters, sorts and truncates.
func (s *Synthesizer) Synthesize(ctx context.Context, q Query) (*Feed, error) {
	if q.Severity != "" && q.Severity.Rank() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, q.Severity)
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	all, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var sum Summary
	for _, a := range all {
		switch a.Severity {
		case SeverityCritical:
			sum.Critical++
		case SeverityHigh:
			sum.High++
		case SeverityMedium:
			sum.Medium++
		case SeverityLow:
			sum.Low++
		}
	}

	filtered := make([]Alert, 0, len(all))
	for _, a := range all {
		if q.Severity == "" || a.Severity == q.Severity {
			filtered = append(filtered, a)
		}
	}
	Sort(filtered)
	sum.Total = len(filtered)

	if len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return &Feed{Alerts: filtered, Summary: sum, LastUpdated: s.now().UTC()}, nil
}

// Sort orders by severity rank desc, then timestamp desc.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
}

// Collect applies the three rules in order and concatenates their alerts.
func (s *Synthesizer) Collect(ctx context.Context) ([]Alert, error) {
	th := s.thresholds()
	now := s.now()

	var (
		critical []data.Incident
		busy     []analytics.CameraCount
		backlog  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		critical, err = s.engine.Store().ListIncidents(gctx, data.IncidentFilter{
			Resolved: data.Bool(false),
			Types:    []data.IncidentType{data.TypeGunThreat, data.TypeUnauthorisedAccess},
		}, data.ListOptions{WithCamera: true})
		return err
	})
	g.Go(func() (err error) {
		busy, err = s.engine.CamerasAtLeast(gctx, data.IncidentFilter{
			Resolved:   data.Bool(false),
			TsStartGte: data.Time(now.Add(-th.CameraWindow)),
		}, th.CameraMinIncidents)
		return err
	})
	g.Go(func() (err error) {
		backlog, err = s.engine.Count(gctx, data.IncidentFilter{Resolved: data.Bool(false)})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Alert, 0, len(critical)+len(busy)+1)
	for _, i := range critical {
		out = append(out, criticalAlert(i))
	}
	for _, c := range busy {
		out = append(out, cameraAlert(c, th.CameraWindow, now))
	}
	if backlog > th.Backlog {
		out = append(out, backlogAlert(backlog, now))
	}
	return out, nil
}

func criticalAlert(i data.Incident) Alert {
	sev := SeverityHigh
	if i.Type == data.TypeGunThreat {
		sev = SeverityCritical
	}
	where := i.CameraID
	if i.Camera != nil {
		where = fmt.Sprintf("%s (%s)", i.Camera.Name, i.Camera.Location)
	}
	ref := map[string]any{"id": i.ID}
	return Alert{
		ID:        "critical-" + i.ID,
		Category:  CategoryCriticalIncident,
		Severity:  sev,
		Title:     fmt.Sprintf("%s Detected", i.Type),
		Message:   fmt.Sprintf("%s detected at %s", i.Type, where),
		Timestamp: i.TsStart,
		Data:      map[string]any{"incidentId": i.ID, "incident": i},
		Actions: []Action{
			{Label: "View Incident", Action: "view_incident", Data: ref},
			{Label: "Resolve", Action: "resolve_incident", Data: ref},
		},
	}
}

func cameraAlert(c analytics.CameraCount, window time.Duration, now time.Time) Alert {
	name := c.CameraID
	if c.Camera != nil {
		name = c.Camera.Name
	}
	ref := map[string]any{"id": c.CameraID}
	return Alert{
		ID:        "camera-" + c.CameraID,
		Category:  CategoryCamera,
		Severity:  SeverityMedium,
		Title:     "Multiple Incidents Detected",
		Message:   fmt.Sprintf("%d unresolved incidents at %s in the last %s", c.Count, name, humanWindow(window)),
		Timestamp: now,
		Data:      map[string]any{"cameraId": c.CameraID, "camera": c.Camera, "incidentCount": c.Count},
		Actions: []Action{
			{Label: "View Camera", Action: "view_camera", Data: ref},
			{Label: "View Incidents", Action: "view_camera_incidents", Data: ref},
		},
	}
}

func backlogAlert(n int, now time.Time) Alert {
	return Alert{
		ID:        "system-backlog",
		Category:  CategorySystem,
		Severity:  SeverityHigh,
		Title:     "High Incident Backlog",
		Message:   fmt.Sprintf("%d unresolved incidents require attention", n),
		Timestamp: now,
		Data:      map[string]any{"unresolvedCount": n},
		Actions: []Action{
			{Label: "View All Incidents", Action: "view_incidents", Data: map[string]any{"resolved": false}},
			{Label: "Bulk Resolve", Action: "bulk_resolve", Data: map[string]any{}},
		},
	}
}

func humanWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
