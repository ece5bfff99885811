// Package search matches a free-text query against incident types and camera
// names and locations.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/technosupport/incident-analytics/internal/data"
)

type Scope string

const (
	ScopeIncidents Scope = "incidents"
	ScopeCameras   Scope = "cameras"
	ScopeAll       Scope = "all"
)

const (
	DefaultLimit          = 10
	cameraRecentIncidents = 5
	cameraFanout          = 8
)

var (
	ErrQueryRequired = errors.New("search query is required")
	ErrInvalidScope  = errors.New("invalid search type. Supported types: incidents, cameras, all")
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeIncidents, ScopeCameras, ScopeAll:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

type Query struct {
	Text  string
	Scope Scope
	Limit int
}

type CameraResult struct {
	data.Camera
	Incidents []data.Incident `json:"incidents"`
}

type Results struct {
	Query        string          `json:"query"`
	Incidents    []data.Incident `json:"incidents"`
	Cameras      []CameraResult  `json:"cameras"`
	TotalResults int             `json:"totalResults"`
}

type Engine struct {
	store data.IncidentStore
}

func NewEngine(store data.IncidentStore) *Engine {
	return &Engine{store: store}
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

// Search runs each requested scope, each capped at q.Limit.
func (e *Engine) Search(ctx context.Context, q Query) (*Results, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrQueryRequired
	}
	if q.Scope == "" {
		q.Scope = ScopeAll
	}
	if _, err := ParseScope(string(q.Scope)); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	needle := strings.ToLower(text)

	cameras, err := e.store.ListCameras(ctx)
	if err != nil {
		return nil, err
	}
	var matched []data.Camera
	for _, c := range cameras {
		if contains(c.Name, needle) || contains(c.Location, needle) {
			matched = append(matched, c)
		}
	}

	res := &Results{Query: q.Text, Incidents: []data.Incident{}, Cameras: []CameraResult{}}

	if q.Scope == ScopeIncidents || q.Scope == ScopeAll {
		incs, err := e.incidents(ctx, needle, matched, q.Limit)
		if err != nil {
			return nil, err
		}
		res.Incidents = incs
	}
	if q.Scope == ScopeCameras || q.Scope == ScopeAll {
		cams, err := e.cameras(ctx, matched, q.Limit)
		if err != nil {
			return nil, err
		}
		res.Cameras = cams
	}

	res.TotalResults = len(res.Incidents) + len(res.Cameras)
	return res, nil
}

// incidents matches on the type name or the owning camera.
func (e *Engine) incidents(ctx context.Context, needle string, matched []data.Camera, limit int) ([]data.Incident, error) {
	var types []data.IncidentType
	for _, t := range data.IncidentTypes {
		if contains(string(t), needle) {
			types = append(types, t)
		}
	}
	ids := make([]string, len(matched))
	for i, c := range matched {
		ids[i] = c.ID
	}
	if len(types) == 0 && len(ids) == 0 {
		return []data.Incident{}, nil
	}

	incs, err := e.store.ListIncidents(ctx, data.IncidentFilter{
		TypeOrCamera: &data.TypeOrCamera{Types: types, CameraIDs: ids},
	}, data.ListOptions{Limit: limit, WithCamera: true})
	if err != nil {
		return nil, err
	}
	if incs == nil {
		incs = []data.Incident{}
	}
	return incs, nil
}

func (e *Engine) cameras(ctx context.Context, matched []data.Camera, limit int) ([]CameraResult, error) {
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]CameraResult, len(matched))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cameraFanout)
	for i, c := range matched {
		g.Go(func() error {
			incs, err := e.store.ListIncidents(gctx, data.IncidentFilter{CameraID: c.ID}, data.ListOptions{Limit: cameraRecentIncidents})
			if err != nil {
				return err
			}
			if incs == nil {
				incs = []data.Incident{}
			}
			out[i] = CameraResult{Camera: c, Incidents: incs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
