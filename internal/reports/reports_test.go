package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func inc(id, cam string, t data.IncidentType, ago, resolvedAfter time.Duration) data.Incident {
	start := now.Add(-ago)
	i := data.Incident{ID: id, CameraID: cam, Type: t, TsStart: start, TsEnd: start.Add(time.Minute), UpdatedAt: start}
	if resolvedAfter > 0 {
		i.Resolved = true
		i.UpdatedAt = start.Add(resolvedAfter)
	}
	return i
}

func newGenerator(incs ...data.Incident) *Generator {
	cams := []data.Camera{
		{ID: "c1", Name: "Shop Floor A", Location: "Ground Floor"},
		{ID: "c2", Name: "Vault", Location: "Basement"},
		{ID: "c3", Name: "Entrance", Location: "Lobby"},
	}
	g := NewGenerator(analytics.NewEngine(data.NewMemoryStore(cams, incs)))
	g.now = func() time.Time { return now }
	return g
}

func fixture() []data.Incident {
	return []data.Incident{
		inc("i1", "c1", data.TypeGunThreat, 1*time.Hour, 0),
		inc("i2", "c1", data.TypeUnauthorisedAccess, 2*time.Hour, 2*time.Hour),
		inc("i3", "c2", data.TypeUnauthorisedAccess, 3*time.Hour, 1*time.Hour),
		inc("i4", "c2", data.TypeFaceRecognised, 26*time.Hour, 0),
		inc("i5", "c1", data.TypePerimeterBreach, 50*time.Hour, 30*time.Minute),
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindSummary, k)

	for _, want := range Kinds {
		k, err := ParseKind(string(want))
		require.NoError(t, err)
		assert.Equal(t, want, k)
	}

	_, err = ParseKind("weekly")
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

func TestGenerate_UnknownKind(t *testing.T) {
	_, err := newGenerator().Generate(context.Background(), Request{Kind: "weekly"})
	assert.ErrorIs(t, err, ErrUnknownReportType)
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name    string
		in      SecuritySummary
		level   RiskLevel
		factors []string
	}{
		{"gun threat", SecuritySummary{GunThreats: 1}, RiskHigh, []string{FactorGunThreats}},
		{"many unauthorized", SecuritySummary{UnauthorizedAccess: 11}, RiskMedium, []string{FactorUnauthorizedAccess}},
		{"six unauthorized", SecuritySummary{UnauthorizedAccess: 6}, RiskMedium, []string{}},
		{"all zero", SecuritySummary{}, RiskLow, []string{}},
		{"everything", SecuritySummary{GunThreats: 2, UnauthorizedAccess: 12, PerimeterBreaches: 6, UnresolvedCritical: 3}, RiskHigh,
			[]string{FactorGunThreats, FactorUnauthorizedAccess, FactorPerimeterBreaches, FactorUnresolved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssessRisk(tt.in)
			assert.Equal(t, tt.level, got.Level)
			assert.Equal(t, tt.factors, got.Factors)
		})
	}
}

func TestInsights(t *testing.T) {
	ins := Insights(nil)
	assert.Nil(t, ins.PeakPeriod)
	assert.Equal(t, 0, ins.AveragePerPeriod)

	buckets := []analytics.Bucket{
		{Timestamp: "2025-05-18", Total: 2},
		{Timestamp: "2025-05-19", Total: 5},
		{Timestamp: "2025-05-20", Total: 5},
	}
	ins = Insights(buckets)
	require.NotNil(t, ins.PeakPeriod)
	assert.Equal(t, "2025-05-19", ins.PeakPeriod.Timestamp, "first maximum wins")
	assert.Equal(t, 4, ins.AveragePerPeriod)
}

func TestSummaryReport(t *testing.T) {
	r, err := newGenerator(fixture()...).Generate(context.Background(), Request{Kind: KindSummary, TimeRange: "7d"})
	require.NoError(t, err)

	s, ok := r.(*SummaryReport)
	require.True(t, ok, "expected *SummaryReport, got %T", r)
	assert.Equal(t, KindSummary, s.Kind())
	assert.Equal(t, 5, s.Summary.TotalIncidents)
	assert.Equal(t, 3, s.Summary.ResolvedIncidents)
	assert.Equal(t, 2, s.Summary.UnresolvedIncidents)
	assert.Equal(t, 60, s.Summary.ResolutionRate)
	assert.Equal(t, 3, s.Summary.CriticalIncidents)
	assert.Equal(t, 1.2, s.Summary.AvgResolutionTimeHours)

	require.Len(t, s.IncidentsByType, 4)
	assert.Equal(t, data.TypeUnauthorisedAccess, s.IncidentsByType[0].Type)
	assert.Equal(t, 40, s.IncidentsByType[0].Percentage)
	sum := 0
	for _, ts := range s.IncidentsByType {
		sum += ts.Percentage
	}
	assert.InDelta(t, 100, sum, float64(len(s.IncidentsByType)-1))

	require.Len(t, s.IncidentsByCamera, 2)
	assert.Equal(t, "Shop Floor A", s.IncidentsByCamera[0].Camera.Name)
	assert.Equal(t, 60, s.IncidentsByCamera[0].Percentage)
}

func TestSummaryReport_Empty(t *testing.T) {
	r, err := newGenerator().Generate(context.Background(), Request{Kind: KindSummary, TimeRange: "30d"})
	require.NoError(t, err)
	s := r.(*SummaryReport)
	assert.Equal(t, SummaryTotals{}, s.Summary)
	assert.Empty(t, s.IncidentsByType)
	assert.NotNil(t, s.IncidentsByCamera)
}

func TestTrendsReport_Granularity(t *testing.T) {
	g := newGenerator(fixture()...)

	r, err := g.Generate(context.Background(), Request{Kind: KindTrends, TimeRange: "24h"})
	require.NoError(t, err)
	tr := r.(*TrendsReport)
	assert.Equal(t, timerange.Hour, tr.GroupBy)
	require.NotEmpty(t, tr.Trends)
	for _, b := range tr.Trends {
		assert.Len(t, b.Timestamp, 13)
	}

	for _, token := range []string{"7d", "30d", "90d"} {
		r, err := g.Generate(context.Background(), Request{Kind: KindTrends, TimeRange: token})
		require.NoError(t, err)
		tr := r.(*TrendsReport)
		assert.Equal(t, timerange.Day, tr.GroupBy)
		for i, b := range tr.Trends {
			assert.Len(t, b.Timestamp, 10)
			if i > 0 {
				assert.LessOrEqual(t, tr.Trends[i-1].Timestamp, b.Timestamp)
			}
		}
	}
}

func TestTrendsReport_EmptyHasNoPeak(t *testing.T) {
	r, err := newGenerator().Generate(context.Background(), Request{Kind: KindTrends, TimeRange: "7d"})
	require.NoError(t, err)
	tr := r.(*TrendsReport)
	assert.Empty(t, tr.Trends)
	assert.Nil(t, tr.Insights.PeakPeriod)
}

func TestPerformanceReport_IncludesIdleCameras(t *testing.T) {
	r, err := newGenerator(fixture()...).Generate(context.Background(), Request{Kind: KindPerformance, TimeRange: "7d"})
	require.NoError(t, err)
	p := r.(*PerformanceReport)

	assert.Equal(t, OverallPerformance{TotalIncidents: 5, ResolvedIncidents: 3, ResolutionRate: 60}, p.Overall)
	require.Len(t, p.CameraPerformance, 3)
	assert.Equal(t, "c1", p.CameraPerformance[0].Camera.ID)
	assert.Equal(t, 3, p.CameraPerformance[0].TotalIncidents)
	assert.Equal(t, 67, p.CameraPerformance[0].ResolutionRate)
	assert.Equal(t, 1.3, p.CameraPerformance[0].AvgResolutionTime)

	idle := p.CameraPerformance[2]
	assert.Equal(t, "c3", idle.Camera.ID)
	assert.Equal(t, 0, idle.TotalIncidents)
	assert.Equal(t, 0, idle.ResolutionRate)
	assert.Equal(t, 0.0, idle.AvgResolutionTime)

	// Only types with a resolved incident appear.
	for _, tp := range p.TypePerformance {
		assert.NotEqual(t, data.TypeGunThreat, tp.Type)
		assert.NotEqual(t, data.TypeFaceRecognised, tp.Type)
	}
	assert.Len(t, p.TypePerformance, 2)
}

func TestSecurityReport(t *testing.T) {
	r, err := newGenerator(fixture()...).Generate(context.Background(), Request{Kind: KindSecurity, TimeRange: "7d"})
	require.NoError(t, err)
	s := r.(*SecurityReport)

	assert.Equal(t, SecuritySummary{
		TotalCriticalIncidents: 4,
		UnauthorizedAccess:     2,
		GunThreats:             1,
		PerimeterBreaches:      1,
		UnresolvedCritical:     1,
	}, s.Summary)
	assert.Equal(t, RiskHigh, s.RiskAssessment.Level)
	assert.Equal(t, []string{FactorGunThreats, FactorUnresolved}, s.RiskAssessment.Factors)
	require.Len(t, s.CriticalIncidents, 4)
	assert.Equal(t, "i1", s.CriticalIncidents[0].ID)
	assert.NotNil(t, s.CriticalIncidents[0].Camera)
}

func TestSecurityReport_LatestTwenty(t *testing.T) {
	var incs []data.Incident
	for i := 0; i < 25; i++ {
		incs = append(incs, inc(fmt.Sprintf("p%02d", i), "c3", data.TypePerimeterBreach, time.Duration(i+1)*time.Minute, 0))
	}
	r, err := newGenerator(incs...).Generate(context.Background(), Request{Kind: KindSecurity, TimeRange: "24h"})
	require.NoError(t, err)
	s := r.(*SecurityReport)

	assert.Equal(t, 25, s.Summary.TotalCriticalIncidents)
	require.Len(t, s.CriticalIncidents, 20)
	assert.Equal(t, "p00", s.CriticalIncidents[0].ID)
	assert.Equal(t, RiskLow, s.RiskAssessment.Level)
	assert.Equal(t, []string{FactorPerimeterBreaches, FactorUnresolved}, s.RiskAssessment.Factors)
}

func TestGenerate_Idempotent(t *testing.T) {
	g := newGenerator(fixture()...)
	for _, k := range Kinds {
		a, err := g.Generate(context.Background(), Request{Kind: k, TimeRange: "7d"})
		require.NoError(t, err)
		b, err := g.Generate(context.Background(), Request{Kind: k, TimeRange: "7d"})
		require.NoError(t, err)
		assert.Equal(t, a, b, k)
	}
}

func TestGenerate_CameraFilter(t *testing.T) {
	r, err := newGenerator(fixture()...).Generate(context.Background(), Request{Kind: KindSummary, TimeRange: "7d", CameraID: "c2"})
	require.NoError(t, err)
	s := r.(*SummaryReport)
	assert.Equal(t, 2, s.Summary.TotalIncidents)
	require.Len(t, s.IncidentsByCamera, 1)
	assert.Equal(t, 100, s.IncidentsByCamera[0].Percentage)
}

type downStore struct{ data.IncidentStore }

func (downStore) ListIncidents(ctx context.Context, f data.IncidentFilter, o data.ListOptions) ([]data.Incident, error) {
	return nil, errors.New("connection reset")
}

func TestGenerate_StoreUnavailable(t *testing.T) {
	store := data.NewGuardedStore(downStore{data.NewMemoryStore(nil, nil)}, data.GuardConfig{}, nil)
	g := NewGenerator(analytics.NewEngine(store))
	_, err := g.Generate(context.Background(), Request{Kind: KindSecurity})
	assert.ErrorIs(t, err, data.ErrStoreUnavailable)
}
