package reports

import (
	"context"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

type TrendInsights struct {
	// PeakPeriod is nil when there are no buckets.
	PeakPeriod       *analytics.Bucket `json:"peakPeriod"`
	AveragePerPeriod int               `json:"averagePerPeriod"`
}

type TrendsReport struct {
	Header
	GroupBy  timerange.Granularity `json:"groupBy"`
	Trends   []analytics.Bucket    `json:"trends"`
	Insights TrendInsights         `json:"insights"`
}

func (g *Generator) trends(ctx context.Context, scope analytics.Scope) (*TrendsReport, error) {
	gran := scope.Window.Granularity()
	buckets, err := g.engine.TimeSeries(ctx, scope.Filter(), gran)
	if err != nil {
		return nil, err
	}
	if buckets == nil {
		buckets = []analytics.Bucket{}
	}

	return &TrendsReport{
		Header:   Header{ReportType: KindTrends, Period: analytics.PeriodOf(scope.Window)},
		GroupBy:  gran,
		Trends:   buckets,
		Insights: Insights(buckets),
	}, nil
}

// Insights finds the first bucket with the greatest total and the mean total.
func Insights(buckets []analytics.Bucket) TrendInsights {
	var ins TrendInsights
	if len(buckets) == 0 {
		return ins
	}
	sum := 0
	for i := range buckets {
		sum += buckets[i].Total
		if ins.PeakPeriod == nil || buckets[i].Total > ins.PeakPeriod.Total {
			peak := buckets[i]
			ins.PeakPeriod = &peak
		}
	}
	ins.AveragePerPeriod = int(analytics.RoundHalfUp(float64(sum) / float64(len(buckets))))
	return ins
}
