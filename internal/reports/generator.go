package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/logging"
	"github.com/technosupport/incident-analytics/internal/timerange"
)

type Request struct {
	Kind      Kind
	TimeRange string
	CameraID  string
}

type Generator struct {
	engine *analytics.Engine
	now    func() time.Time
}

func NewGenerator(engine *analytics.Engine) *Generator {
	return &Generator{engine: engine, now: time.Now}
}

// Generate resolves the window and dispatches to the report for req.Kind.
func (g *Generator) Generate(ctx context.Context, req Request) (Report, error) {
	scope := analytics.Scope{
		Window:   timerange.Resolve(req.TimeRange, g.now()),
		CameraID: req.CameraID,
	}

	var (
		r   Report
		err error
	)
	switch req.Kind {
	case KindSummary:
		r, err = g.summary(ctx, scope)
	case KindTrends:
		r, err = g.trends(ctx, scope)
	case KindPerformance:
		r, err = g.performance(ctx, scope)
	case KindSecurity:
		r, err = g.security(ctx, scope)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, req.Kind)
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("report", string(req.Kind)).Msg("[REPORTS] generation failed")
		return nil, err
	}
	return r, nil
}
