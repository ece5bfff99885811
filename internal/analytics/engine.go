// Package analytics computes counts, group-bys, resolution statistics and
// time buckets over incidents in a window.
package analytics

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

// Scope narrows an aggregation to a window and optionally a single camera.
type Scope struct {
	Window   timerange.Window
	CameraID string
}

// Filter returns the store filter for the scope: TsStart in [Start, End].
func (s Scope) Filter() data.IncidentFilter {
	return data.IncidentFilter{
		CameraID:   s.CameraID,
		TsStartGte: data.Time(s.Window.Start),
		TsStartLte: data.Time(s.Window.End),
	}
}

type Counts struct {
	Total      int `json:"totalIncidents"`
	Resolved   int `json:"resolvedIncidents"`
	Unresolved int `json:"unresolvedIncidents"`
}

type TypeCount struct {
	Type  data.IncidentType `json:"type"`
	Count int               `json:"count"`
}

type CameraCount struct {
	CameraID string       `json:"cameraId"`
	Camera   *data.Camera `json:"camera"`
	Count    int          `json:"count"`
}

type Engine struct {
	store data.IncidentStore
}

func NewEngine(store data.IncidentStore) *Engine {
	return &Engine{store: store}
}

func (e *Engine) Store() data.IncidentStore {
	return e.store
}

func (e *Engine) Count(ctx context.Context, f data.IncidentFilter) (int, error) {
	return e.store.CountIncidents(ctx, f)
}

// Counts reads total and resolved concurrently. Unresolved is derived so the
// three always add up.
func (e *Engine) Counts(ctx context.Context, f data.IncidentFilter) (Counts, error) {
	var c Counts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.store.CountIncidents(gctx, f)
		c.Total = n
		return err
	})
	g.Go(func() error {
		rf := f
		rf.Resolved = data.Bool(true)
		n, err := e.store.CountIncidents(gctx, rf)
		c.Resolved = n
		return err
	})
	if err := g.Wait(); err != nil {
		return Counts{}, err
	}
	c.Unresolved = c.Total - c.Resolved
	return c, nil
}

// sortGroups orders by count desc, then key asc, regardless of store order.
func sortGroups(gs []data.GroupCount) {
	sort.SliceStable(gs, func(a, b int) bool {
		if gs[a].Count != gs[b].Count {
			return gs[a].Count > gs[b].Count
		}
		return gs[a].Key < gs[b].Key
	})
}

func (e *Engine) GroupByType(ctx context.Context, f data.IncidentFilter) ([]TypeCount, error) {
	groups, err := e.store.GroupIncidents(ctx, f, data.GroupQuery{Key: data.GroupByType})
	if err != nil {
		return nil, err
	}
	sortGroups(groups)

	out := make([]TypeCount, len(groups))
	for i, g := range groups {
		out[i] = TypeCount{Type: data.IncidentType(g.Key), Count: g.Count}
	}
	return out, nil
}

// GroupByCamera groups by camera and joins metadata with one batched lookup.
func (e *Engine) GroupByCamera(ctx context.Context, f data.IncidentFilter) ([]CameraCount, error) {
	return e.groupByCamera(ctx, f, 0)
}

// CamerasAtLeast returns cameras with at least min matching incidents.
func (e *Engine) CamerasAtLeast(ctx context.Context, f data.IncidentFilter, min int) ([]CameraCount, error) {
	return e.groupByCamera(ctx, f, min)
}

func (e *Engine) groupByCamera(ctx context.Context, f data.IncidentFilter, min int) ([]CameraCount, error) {
	groups, err := e.store.GroupIncidents(ctx, f, data.GroupQuery{Key: data.GroupByCamera, MinCount: min})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []CameraCount{}, nil
	}
	sortGroups(groups)

	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.Key
	}
	cams, err := e.store.GetCamerasByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]data.Camera, len(cams))
	for _, c := range cams {
		byID[c.ID] = c
	}

	out := make([]CameraCount, len(groups))
	for i, g := range groups {
		out[i] = CameraCount{CameraID: g.Key, Count: g.Count}
		if c, ok := byID[g.Key]; ok {
			cam := c
			out[i].Camera = &cam
		}
	}
	return out, nil
}

// Resolved lists the resolved incidents matching f.
func (e *Engine) Resolved(ctx context.Context, f data.IncidentFilter) ([]data.Incident, error) {
	f.Resolved = data.Bool(true)
	return e.store.ListIncidents(ctx, f, data.ListOptions{})
}

func (e *Engine) AverageResolution(ctx context.Context, f data.IncidentFilter) (Resolution, error) {
	incs, err := e.Resolved(ctx, f)
	if err != nil {
		return Resolution{}, err
	}
	return AverageResolution(incs), nil
}

// TimeSeries buckets every incident matching f at granularity g.
func (e *Engine) TimeSeries(ctx context.Context, f data.IncidentFilter, g timerange.Granularity) ([]Bucket, error) {
	incs, err := e.store.ListIncidents(ctx, f, data.ListOptions{})
	if err != nil {
		return nil, err
	}
	return Buckets(incs, g), nil
}
