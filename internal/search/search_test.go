package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/incident-analytics/internal/data"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func inc(id, cam string, t data.IncidentType, ago time.Duration) data.Incident {
	return data.Incident{ID: id, CameraID: cam, Type: t, TsStart: now.Add(-ago)}
}

func store() *data.MemoryStore {
	cams := []data.Camera{
		{ID: "c1", Name: "Shop Floor A", Location: "Ground Floor"},
		{ID: "c2", Name: "Vault", Location: "Basement"},
		{ID: "c3", Name: "Entrance", Location: "Lobby"},
	}
	incs := []data.Incident{
		inc("i1", "c1", data.TypeGunThreat, time.Hour),
		inc("i2", "c3", data.TypeFaceRecognised, 2*time.Hour),
		inc("i3", "c2", data.TypeFaceRecognised, 3*time.Hour),
	}
	return data.NewMemoryStore(cams, incs)
}

func TestSearch_QueryRequired(t *testing.T) {
	e := NewEngine(store())
	_, err := e.Search(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrQueryRequired)
	_, err = e.Search(context.Background(), Query{Text: "   "})
	assert.ErrorIs(t, err, ErrQueryRequired)
}

func TestSearch_InvalidScope(t *testing.T) {
	_, err := NewEngine(store()).Search(context.Background(), Query{Text: "vault", Scope: "users"})
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestSearch_VaultNoFalsePositives(t *testing.T) {
	res, err := NewEngine(store()).Search(context.Background(), Query{Text: "vault"})
	require.NoError(t, err)

	require.Len(t, res.Cameras, 1)
	assert.Equal(t, "Vault", res.Cameras[0].Name)
	require.Len(t, res.Cameras[0].Incidents, 1)

	require.Len(t, res.Incidents, 1)
	assert.Equal(t, "i3", res.Incidents[0].ID)
	require.NotNil(t, res.Incidents[0].Camera)
	assert.Equal(t, "Vault", res.Incidents[0].Camera.Name)
	assert.Equal(t, 2, res.TotalResults)
}

func TestSearch_TypeMatchCaseInsensitive(t *testing.T) {
	res, err := NewEngine(store()).Search(context.Background(), Query{Text: "FACE", Scope: ScopeIncidents})
	require.NoError(t, err)
	assert.Len(t, res.Incidents, 2)
	assert.Empty(t, res.Cameras)
	assert.Equal(t, "i2", res.Incidents[0].ID)
}

func TestSearch_LocationMatch(t *testing.T) {
	res, err := NewEngine(store()).Search(context.Background(), Query{Text: "lobby", Scope: ScopeCameras})
	require.NoError(t, err)
	assert.Empty(t, res.Incidents)
	require.Len(t, res.Cameras, 1)
	assert.Equal(t, "c3", res.Cameras[0].ID)
}

func TestSearch_NoMatch(t *testing.T) {
	res, err := NewEngine(store()).Search(context.Background(), Query{Text: "zzz"})
	require.NoError(t, err)
	assert.NotNil(t, res.Incidents)
	assert.NotNil(t, res.Cameras)
	assert.Equal(t, 0, res.TotalResults)
}

func TestSearch_Limits(t *testing.T) {
	s := store()
	for i := 0; i < 8; i++ {
		s.AddIncident(inc(fmt.Sprintf("v%d", i), "c2", data.TypeSuspiciousActivity, time.Duration(i+1)*time.Minute))
	}
	res, err := NewEngine(s).Search(context.Background(), Query{Text: "vault", Limit: 4})
	require.NoError(t, err)
	assert.Len(t, res.Incidents, 4)
	require.Len(t, res.Cameras, 1)
	assert.Len(t, res.Cameras[0].Incidents, 5)
	assert.Equal(t, "v0", res.Cameras[0].Incidents[0].ID)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)
	s, err = ParseScope("cameras")
	require.NoError(t, err)
	assert.Equal(t, ScopeCameras, s)
}
