package health

import (
	"context"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Pinger is satisfied by data.Models, data.MemoryStore and data.GuardedStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CheckResult struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime"` // seconds
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type Service struct {
	checks  map[string]Pinger
	version string
	timeout time.Duration
	started time.Time
	now     func() time.Time
}

// NewService registers named dependencies. The report is healthy only when
// every one of them answers within timeout.
func NewService(version string, timeout time.Duration, checks map[string]Pinger) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Service{
		checks:  checks,
		version: version,
		timeout: timeout,
		started: time.Now(),
		now:     time.Now,
	}
}

func (s *Service) Check(ctx context.Context) Report {
	now := s.now()
	rep := Report{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    now.Sub(s.started).Seconds(),
		Timestamp: now.UTC(),
		Checks:    make(map[string]CheckResult, len(s.checks)),
	}

	for name, p := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		err := p.Ping(cctx)
		cancel()

		res := CheckResult{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			res.Status = StatusUnhealthy
			res.Error = err.Error()
			rep.Status = StatusUnhealthy
		}
		rep.Checks[name] = res
	}
	return rep
}
