// Package timerange turns symbolic range tokens into absolute windows.
package timerange

import "time"

type Range string

const (
	Last24h Range = "24h"
	Last7d  Range = "7d"
	Last30d Range = "30d"
	Last90d Range = "90d"

	Default = Last24h
)

type Granularity string

const (
	Hour Granularity = "hour"
	Day  Granularity = "day"
)

var durations = map[Range]time.Duration{
	Last24h: 24 * time.Hour,
	Last7d:  7 * 24 * time.Hour,
	Last30d: 30 * 24 * time.Hour,
	Last90d: 90 * 24 * time.Hour,
}

// Window is the closed interval [Start, End].
type Window struct {
	Range Range
	Start time.Time
	End   time.Time
}

func (w Window) Granularity() Granularity {
	if w.Range == Last24h {
		return Hour
	}
	return Day
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Resolve accepts the report tokens 24h, 7d, 30d and 90d.
// Anything else resolves to the last 24 hours.
func Resolve(token string, now time.Time) Window {
	return resolve(Range(token), now, Last24h, Last7d, Last30d, Last90d)
}

// ResolveDashboard accepts 24h, 7d and 30d only.
func ResolveDashboard(token string, now time.Time) Window {
	return resolve(Range(token), now, Last24h, Last7d, Last30d)
}

func resolve(r Range, now time.Time, allowed ...Range) Window {
	chosen := Default
	for _, a := range allowed {
		if a == r {
			chosen = r
			break
		}
	}
	return Window{Range: chosen, Start: now.Add(-durations[chosen]), End: now}
}
