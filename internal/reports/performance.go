package reports

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/data"
)

type OverallPerformance struct {
	TotalIncidents    int `json:"totalIncidents"`
	ResolvedIncidents int `json:"resolvedIncidents"`
	ResolutionRate    int `json:"resolutionRate"`
}

type CameraPerformance struct {
	Camera            data.Camera `json:"camera"`
	TotalIncidents    int         `json:"totalIncidents"`
	ResolvedIncidents int         `json:"resolvedIncidents"`
	ResolutionRate    int         `json:"resolutionRate"`
	// AvgResolutionTime is in hours.
	AvgResolutionTime float64 `json:"avgResolutionTime"`
}

type PerformanceReport struct {
	Header
	Overall           OverallPerformance         `json:"overall"`
	CameraPerformance []CameraPerformance        `json:"cameraPerformance"`
	TypePerformance   []analytics.TypeResolution `json:"typePerformance"`
}

func (g *Generator) performance(ctx context.Context, scope analytics.Scope) (*PerformanceReport, error) {
	f := scope.Filter()

	var (
		cameras   []data.Camera
		incidents []data.Incident
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		cameras, err = g.engine.Store().ListCameras(ctx)
		return err
	})
	eg.Go(func() (err error) {
		incidents, err = g.engine.Store().ListIncidents(ctx, f, data.ListOptions{})
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	perCamera := make(map[string][]data.Incident)
	resolved := 0
	for _, i := range incidents {
		perCamera[i.CameraID] = append(perCamera[i.CameraID], i)
		if i.Resolved {
			resolved++
		}
	}

	// Every camera is listed, idle ones with zero metrics.
	rows := make([]CameraPerformance, 0, len(cameras))
	for _, c := range cameras {
		incs := perCamera[c.ID]
		n, r := len(incs), 0
		for _, i := range incs {
			if i.Resolved {
				r++
			}
		}
		rows = append(rows, CameraPerformance{
			Camera:            c,
			TotalIncidents:    n,
			ResolvedIncidents: r,
			ResolutionRate:    analytics.ResolutionRate(r, n),
			AvgResolutionTime: analytics.AverageResolution(incs).AvgHours,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].TotalIncidents != rows[b].TotalIncidents {
			return rows[a].TotalIncidents > rows[b].TotalIncidents
		}
		if rows[a].Camera.Name != rows[b].Camera.Name {
			return rows[a].Camera.Name < rows[b].Camera.Name
		}
		return rows[a].Camera.ID < rows[b].Camera.ID
	})

	return &PerformanceReport{
		Header: Header{ReportType: KindPerformance, Period: analytics.PeriodOf(scope.Window)},
		Overall: OverallPerformance{
			TotalIncidents:    len(incidents),
			ResolvedIncidents: resolved,
			ResolutionRate:    analytics.ResolutionRate(resolved, len(incidents)),
		},
		CameraPerformance: rows,
		TypePerformance:   analytics.ResolutionByType(incidents),
	}, nil
}
