package reports

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/data"
)

// CriticalTypes are the incident types counted as critical in the summary.
var CriticalTypes = []data.IncidentType{data.TypeGunThreat, data.TypeUnauthorisedAccess}

type SummaryTotals struct {
	TotalIncidents         int     `json:"totalIncidents"`
	ResolvedIncidents      int     `json:"resolvedIncidents"`
	UnresolvedIncidents    int     `json:"unresolvedIncidents"`
	ResolutionRate         int     `json:"resolutionRate"`
	CriticalIncidents      int     `json:"criticalIncidents"`
	AvgResolutionTimeHours float64 `json:"avgResolutionTimeHours"`
}

type TypeShare struct {
	Type       data.IncidentType `json:"type"`
	Count      int               `json:"count"`
	Percentage int               `json:"percentage"`
}

type CameraShare struct {
	Camera     *data.Camera `json:"camera"`
	Count      int          `json:"count"`
	Percentage int          `json:"percentage"`
}

type SummaryReport struct {
	Header
	Summary           SummaryTotals `json:"summary"`
	IncidentsByType   []TypeShare   `json:"incidentsByType"`
	IncidentsByCamera []CameraShare `json:"incidentsByCamera"`
}

func (g *Generator) summary(ctx context.Context, scope analytics.Scope) (*SummaryReport, error) {
	f := scope.Filter()

	var (
		counts   analytics.Counts
		critical int
		res      analytics.Resolution
		byType   []analytics.TypeCount
		byCamera []analytics.CameraCount
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		counts, err = g.engine.Counts(ctx, f)
		return err
	})
	eg.Go(func() (err error) {
		cf := f
		cf.Types = CriticalTypes
		critical, err = g.engine.Count(ctx, cf)
		return err
	})
	eg.Go(func() (err error) {
		res, err = g.engine.AverageResolution(ctx, f)
		return err
	})
	eg.Go(func() (err error) {
		byType, err = g.engine.GroupByType(ctx, f)
		return err
	})
	eg.Go(func() (err error) {
		byCamera, err = g.engine.GroupByCamera(ctx, f)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	r := &SummaryReport{
		Header: Header{ReportType: KindSummary, Period: analytics.PeriodOf(scope.Window)},
		Summary: SummaryTotals{
			TotalIncidents:         counts.Total,
			ResolvedIncidents:      counts.Resolved,
			UnresolvedIncidents:    counts.Unresolved,
			ResolutionRate:         analytics.ResolutionRate(counts.Resolved, counts.Total),
			CriticalIncidents:      critical,
			AvgResolutionTimeHours: res.AvgHours,
		},
		IncidentsByType:   make([]TypeShare, len(byType)),
		IncidentsByCamera: make([]CameraShare, len(byCamera)),
	}
	for i, t := range byType {
		r.IncidentsByType[i] = TypeShare{Type: t.Type, Count: t.Count, Percentage: analytics.Percentage(t.Count, counts.Total)}
	}
	for i, c := range byCamera {
		r.IncidentsByCamera[i] = CameraShare{Camera: c.Camera, Count: c.Count, Percentage: analytics.Percentage(c.Count, counts.Total)}
	}
	return r, nil
}
