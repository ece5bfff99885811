package analytics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/technosupport/incident-analytics/internal/data"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func inc(id, cam string, t data.IncidentType, ago time.Duration, resolvedAfter time.Duration) data.Incident {
	start := now.Add(-ago)
	i := data.Incident{
		ID:        id,
		CameraID:  cam,
		Type:      t,
		TsStart:   start,
		TsEnd:     start.Add(5 * time.Minute),
		CreatedAt: start,
		UpdatedAt: start,
	}
	if resolvedAfter > 0 {
		i.Resolved = true
		i.UpdatedAt = start.Add(resolvedAfter)
	}
	return i
}

func fixtureStore() *data.MemoryStore {
	cams := []data.Camera{
		{ID: "c1", Name: "Shop Floor A", Location: "Ground Floor"},
		{ID: "c2", Name: "Vault", Location: "Basement"},
		{ID: "c3", Name: "Entrance", Location: "Lobby"},
	}
	incs := []data.Incident{
		inc("i1", "c1", data.TypeGunThreat, 1*time.Hour, 0),
		inc("i2", "c1", data.TypeUnauthorisedAccess, 2*time.Hour, 2*time.Hour),
		inc("i3", "c2", data.TypeUnauthorisedAccess, 3*time.Hour, 1*time.Hour),
		inc("i4", "c2", data.TypeFaceRecognised, 26*time.Hour, 0),
		inc("i5", "c1", data.TypeFaceRecognised, 50*time.Hour, 30*time.Minute),
	}
	return data.NewMemoryStore(cams, incs)
}

// countingStore records how often cameras are fetched.
type countingStore struct {
	data.IncidentStore
	cameraLookups atomic.Int32
}

func (s *countingStore) GetCamerasByIDs(ctx context.Context, ids []string) ([]data.Camera, error) {
	s.cameraLookups.Add(1)
	return s.IncidentStore.GetCamerasByIDs(ctx, ids)
}

type brokenStore struct {
	data.MemoryStore
}

func (brokenStore) CountIncidents(ctx context.Context, f data.IncidentFilter) (int, error) {
	return 0, context.DeadlineExceeded
}
