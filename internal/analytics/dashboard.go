package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

const recentIncidentsLimit = 10

type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func PeriodOf(w timerange.Window) Period {
	return Period{Start: w.Start, End: w.End}
}

type DashboardSummary struct {
	TotalIncidents         int     `json:"totalIncidents"`
	UnresolvedIncidents    int     `json:"unresolvedIncidents"`
	ResolvedIncidents      int     `json:"resolvedIncidents"`
	TotalCameras           int     `json:"totalCameras"`
	ResolutionRate         int     `json:"resolutionRate"`
	AvgResolutionTimeMs    int64   `json:"avgResolutionTimeMs"`
	AvgResolutionTimeHours float64 `json:"avgResolutionTimeHours"`
}

type DashboardStats struct {
	TimeRange         timerange.Range  `json:"timeRange"`
	Period            Period           `json:"period"`
	Summary           DashboardSummary `json:"summary"`
	RecentIncidents   []data.Incident  `json:"recentIncidents"`
	IncidentsByType   []TypeCount      `json:"incidentsByType"`
	IncidentsByCamera []CameraCount    `json:"incidentsByCamera"`
	IncidentsOverTime []Bucket         `json:"incidentsOverTime"`
}

// Dashboard computes the rolling dashboard for w. Sub-aggregates run
// concurrently; any failure fails the whole call.
func (e *Engine) Dashboard(ctx context.Context, w timerange.Window) (*DashboardStats, error) {
	f := Scope{Window: w}.Filter()

	var (
		counts   Counts
		cameras  []data.Camera
		recent   []data.Incident
		byType   []TypeCount
		byCamera []CameraCount
		all      []data.Incident
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts, err = e.Counts(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		cameras, err = e.store.ListCameras(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = e.store.ListIncidents(gctx, f, data.ListOptions{Limit: recentIncidentsLimit, WithCamera: true})
		return err
	})
	g.Go(func() (err error) {
		byType, err = e.GroupByType(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		byCamera, err = e.GroupByCamera(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		all, err = e.store.ListIncidents(gctx, f, data.ListOptions{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := AverageResolution(all)
	if recent == nil {
		recent = []data.Incident{}
	}
	buckets := Buckets(all, w.Granularity())
	if buckets == nil {
		buckets = []Bucket{}
	}

	return &DashboardStats{
		TimeRange: w.Range,
		Period:    PeriodOf(w),
		Summary: DashboardSummary{
			TotalIncidents:         counts.Total,
			UnresolvedIncidents:    counts.Unresolved,
			ResolvedIncidents:      counts.Resolved,
			TotalCameras:           len(cameras),
			ResolutionRate:         ResolutionRate(counts.Resolved, counts.Total),
			AvgResolutionTimeMs:    res.AvgMs,
			AvgResolutionTimeHours: res.AvgHours,
		},
		RecentIncidents:   recent,
		IncidentsByType:   byType,
		IncidentsByCamera: byCamera,
		IncidentsOverTime: buckets,
	}, nil
}
