package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

const msPerHour = float64(time.Hour / time.Millisecond)

// RoundHalfUp rounds to the nearest integer, halves toward +Inf.
func RoundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Percentage is round(count/total*100), 0 when total is 0.
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(RoundHalfUp(float64(count) / float64(total) * 100))
}

// ResolutionRate is the share of resolved incidents as a whole percentage.
func ResolutionRate(resolved, total int) int {
	return Percentage(resolved, total)
}

// HoursOneDecimal converts milliseconds to hours rounded to one decimal place.
func HoursOneDecimal(ms float64) float64 {
	return RoundHalfUp(ms/msPerHour*10) / 10
}

type Resolution struct {
	Samples  int     `json:"samples"`
	AvgMs    int64   `json:"avgMs"`
	AvgHours float64 `json:"avgHours"`
}

// AverageResolution averages UpdatedAt-TsStart over resolved incidents only.
func AverageResolution(incidents []data.Incident) Resolution {
	var sum float64
	var n int
	for _, i := range incidents {
		if !i.Resolved {
			continue
		}
		sum += float64(i.ResolutionTime().Milliseconds())
		n++
	}
	if n == 0 {
		return Resolution{}
	}
	avg := sum / float64(n)
	return Resolution{
		Samples:  n,
		AvgMs:    int64(RoundHalfUp(avg)),
		AvgHours: HoursOneDecimal(avg),
	}
}

type TypeResolution struct {
	Type     data.IncidentType `json:"type"`
	Count    int               `json:"count"`
	AvgHours float64           `json:"avgResolutionTimeHours"`
	MinHours float64           `json:"minResolutionTimeHours"`
	MaxHours float64           `json:"maxResolutionTimeHours"`
}

// ResolutionByType returns stats for each type with at least one resolved
// incident, ordered by count desc then type name.
func ResolutionByType(incidents []data.Incident) []TypeResolution {
	samples := make(map[data.IncidentType][]float64)
	for _, i := range incidents {
		if !i.Resolved {
			continue
		}
		samples[i.Type] = append(samples[i.Type], float64(i.ResolutionTime().Milliseconds()))
	}

	out := make([]TypeResolution, 0, len(samples))
	for t, ms := range samples {
		sum, lo, hi := 0.0, ms[0], ms[0]
		for _, v := range ms {
			sum += v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		out = append(out, TypeResolution{
			Type:     t,
			Count:    len(ms),
			AvgHours: HoursOneDecimal(sum / float64(len(ms))),
			MinHours: HoursOneDecimal(lo),
			MaxHours: HoursOneDecimal(hi),
		})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Type < out[b].Type
	})
	return out
}

type Bucket struct {
	Timestamp string                    `json:"timestamp"`
	Total     int                       `json:"total"`
	Resolved  int                       `json:"resolved"`
	ByType    map[data.IncidentType]int `json:"byType"`
}

// BucketKey truncates t, in UTC, to YYYY-MM-DDTHH or YYYY-MM-DD.
func BucketKey(t time.Time, g timerange.Granularity) string {
	t = t.UTC()
	if g == timerange.Hour {
		return t.Format("2006-01-02T15")
	}
	return t.Format("2006-01-02")
}

// Buckets groups incidents by TsStart into ascending time slices.
func Buckets(incidents []data.Incident, g timerange.Granularity) []Bucket {
	idx := make(map[string]int)
	var out []Bucket
	for _, i := range incidents {
		key := BucketKey(i.TsStart, g)
		k, ok := idx[key]
		if !ok {
			k = len(out)
			idx[key] = k
			out = append(out, Bucket{Timestamp: key, ByType: make(map[data.IncidentType]int)})
		}
		b := &out[k]
		b.Total++
		if i.Resolved {
			b.Resolved++
		}
		b.ByType[i.Type]++
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Timestamp < out[b].Timestamp })
	return out
}
