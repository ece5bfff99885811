package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SchedulerConfig defines parameters
type SchedulerConfig struct {
	Interval time.Duration
}

// Scheduler re-runs the health checks on an interval and mirrors the result
// onto the gRPC health service.
type Scheduler struct {
	config  SchedulerConfig
	service *Service
	setters []StatusSetter
	last    atomic.Pointer[Report]
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig, svc *Service, setters ...StatusSetter) *Scheduler {
	if cfg.Interval == 0 {
		cfg.Interval = 15 * time.Second
	}
	return &Scheduler{
		config:  cfg,
		service: svc,
		setters: setters,
		quit:    make(chan struct{}),
	}
}

// Start initiates the scheduling loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.quit)
	s.wg.Wait()
}

// Last returns the most recent report, or nil before the first run.
func (s *Scheduler) Last() *Report {
	return s.last.Load()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Initial Run
	s.tick()

	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.quit:
			return
		}
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Interval)
	defer cancel()

	rep := s.service.Check(ctx)
	prev := s.last.Swap(&rep)
	if prev == nil || prev.Status != rep.Status {
		var ev *zerolog.Event
		if rep.Status != StatusHealthy {
			ev = log.Warn().Interface("checks", rep.Checks)
		} else {
			ev = log.Info()
		}
		ev.Str("status", string(rep.Status)).Msg("[HEALTH] status changed")
	}

	st := servingStatus(rep.Status)
	for _, setter := range s.setters {
		setter.SetServingStatus(ServiceName, st)
		// Overall server health mirrors the service.
		setter.SetServingStatus("", st)
	}
}
