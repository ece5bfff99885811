package data

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// DemoCameras are the three cameras every demo store starts with.
var DemoCameras = []Camera{
	{Name: "Shop Floor A", Location: "Main Production Area"},
	{Name: "Vault", Location: "Security Vault - Level B1"},
	{Name: "Entrance", Location: "Main Building Entrance"},
}

// SeedDemo builds a MemoryStore with n incidents spread over the 24 hours
// before now. The same seed always yields the same data.
func SeedDemo(now time.Time, n int, seed uint64) *MemoryStore {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ids := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("demo-%d", seed)))

	cams := make([]Camera, len(DemoCameras))
	for i, c := range DemoCameras {
		c.ID = uuid.NewSHA1(ids, []byte(c.Name)).String()
		c.CreatedAt, c.UpdatedAt = now.Add(-30*24*time.Hour), now.Add(-30*24*time.Hour)
		cams[i] = c
	}

	incs := make([]Incident, n)
	from := now.Add(-24 * time.Hour)
	for i := range incs {
		start := from.Add(time.Duration(rng.Int64N(int64(24 * time.Hour))))
		end := start.Add(time.Duration(rng.Int64N(int64(10 * time.Minute))))
		incs[i] = Incident{
			ID:           uuid.NewSHA1(ids, []byte(fmt.Sprintf("incident-%d", i))).String(),
			CameraID:     cams[rng.IntN(len(cams))].ID,
			Type:         IncidentTypes[rng.IntN(len(IncidentTypes))],
			TsStart:      start,
			TsEnd:        end,
			ThumbnailURL: fmt.Sprintf("/thumbnails/incident-%d.jpg", i+1),
			Resolved:     rng.Float64() > 0.7,
			CreatedAt:    start,
			UpdatedAt:    end,
		}
	}
	return NewMemoryStore(cams, incs)
}
