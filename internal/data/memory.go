package data

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an IncidentStore over in-process slices. Used by tests and demo mode.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents []Incident
	cameras   map[string]Camera
}

func NewMemoryStore(cameras []Camera, incidents []Incident) *MemoryStore {
	s := &MemoryStore{cameras: make(map[string]Camera)}
	for _, c := range cameras {
		s.cameras[c.ID] = c
	}
	s.incidents = append(s.incidents, incidents...)
	return s
}

func (s *MemoryStore) AddIncident(i Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append(s.incidents, i)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matches(i Incident, f IncidentFilter) bool {
	if f.Resolved != nil && i.Resolved != *f.Resolved {
		return false
	}
	if f.CameraID != "" && i.CameraID != f.CameraID {
		return false
	}
	if f.Type != "" && i.Type != f.Type {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, i.Type) {
		return false
	}
	if f.TypeOrCamera != nil {
		if !slices.Contains(f.TypeOrCamera.Types, i.Type) && !slices.Contains(f.TypeOrCamera.CameraIDs, i.CameraID) {
			return false
		}
	}
	if f.TsStartGte != nil && i.TsStart.Before(*f.TsStartGte) {
		return false
	}
	if f.TsStartLte != nil && i.TsStart.After(*f.TsStartLte) {
		return false
	}
	return true
}

func (s *MemoryStore) filter(f IncidentFilter) []Incident {
	var out []Incident
	for _, i := range s.incidents {
		if matches(i, f) {
			out = append(out, i)
		}
	}
	return out
}

func (s *MemoryStore) ListIncidents(ctx context.Context, f IncidentFilter, opts ListOptions) ([]Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filter(f)
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].TsStart.Equal(out[b].TsStart) {
			return out[a].TsStart.After(out[b].TsStart)
		}
		return out[a].ID < out[b].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if opts.WithCamera {
		for k := range out {
			if c, ok := s.cameras[out[k].CameraID]; ok {
				cam := c
				out[k].Camera = &cam
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) CountIncidents(ctx context.Context, f IncidentFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filter(f)), nil
}

func (s *MemoryStore) GroupIncidents(ctx context.Context, f IncidentFilter, q GroupQuery) ([]GroupCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Key != GroupByType && q.Key != GroupByCamera {
		return nil, fmt.Errorf("unsupported group key %q", q.Key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, i := range s.filter(f) {
		if q.Key == GroupByType {
			counts[string(i.Type)]++
		} else {
			counts[i.CameraID]++
		}
	}

	out := make([]GroupCount, 0, len(counts))
	for k, n := range counts {
		if q.MinCount > 0 && n < q.MinCount {
			continue
		}
		out = append(out, GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Key < out[b].Key
	})
	return out, nil
}

func (s *MemoryStore) GetCamerasByIDs(ctx context.Context, ids []string) ([]Camera, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Camera
	for _, id := range ids {
		if c, ok := s.cameras[id]; ok {
			out = append(out, c)
		}
	}
	sortCameras(out)
	return out, nil
}

func (s *MemoryStore) ListCameras(ctx context.Context) ([]Camera, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Camera, 0, len(s.cameras))
	for _, c := range s.cameras {
		out = append(out, c)
	}
	sortCameras(out)
	return out, nil
}

func sortCameras(cs []Camera) {
	sort.Slice(cs, func(a, b int) bool {
		if cs[a].Name != cs[b].Name {
			return cs[a].Name < cs[b].Name
		}
		return cs[a].ID < cs[b].ID
	})
}
