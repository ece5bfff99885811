package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// StoreObserver receives per-read telemetry. metrics.Collector implements it.
type StoreObserver interface {
	ObserveStoreRead(op string, d time.Duration, err error)
	SetBreakerState(name string, state int)
}

type GuardConfig struct {
	// Timeout bounds every individual read.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// GuardedStore wraps an IncidentStore with a per-read timeout and a circuit
// breaker. Any failure surfaces as ErrStoreUnavailable; it never retries.
type GuardedStore struct {
	inner    IncidentStore
	cfg      GuardConfig
	cb       *gobreaker.CircuitBreaker[any]
	observer StoreObserver
}

const breakerName = "incident-store"

func NewGuardedStore(inner IncidentStore, cfg GuardConfig, observer StoreObserver) *GuardedStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	g := &GuardedStore{inner: inner, cfg: cfg, observer: observer}
	g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[STORE] circuit breaker state change")
			if g.observer != nil {
				g.observer.SetBreakerState(name, int(to))
			}
		},
		// Caller cancellation is not a store fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	if observer != nil {
		observer.SetBreakerState(breakerName, int(gobreaker.StateClosed))
	}
	return g
}

func (g *GuardedStore) State() gobreaker.State {
	return g.cb.State()
}

func guard[T any](g *GuardedStore, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	res, err := g.cb.Execute(func() (any, error) {
		tctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
		return fn(tctx)
	})

	if g.observer != nil {
		g.observer.ObserveStoreRead(op, time.Since(start), err)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	return res.(T), nil
}

func (g *GuardedStore) ListIncidents(ctx context.Context, f IncidentFilter, opts ListOptions) ([]Incident, error) {
	return guard(g, ctx, "list_incidents", func(ctx context.Context) ([]Incident, error) {
		return g.inner.ListIncidents(ctx, f, opts)
	})
}

func (g *GuardedStore) CountIncidents(ctx context.Context, f IncidentFilter) (int, error) {
	return guard(g, ctx, "count_incidents", func(ctx context.Context) (int, error) {
		return g.inner.CountIncidents(ctx, f)
	})
}

func (g *GuardedStore) GroupIncidents(ctx context.Context, f IncidentFilter, q GroupQuery) ([]GroupCount, error) {
	return guard(g, ctx, "group_incidents", func(ctx context.Context) ([]GroupCount, error) {
		return g.inner.GroupIncidents(ctx, f, q)
	})
}

func (g *GuardedStore) GetCamerasByIDs(ctx context.Context, ids []string) ([]Camera, error) {
	return guard(g, ctx, "get_cameras", func(ctx context.Context) ([]Camera, error) {
		return g.inner.GetCamerasByIDs(ctx, ids)
	})
}

func (g *GuardedStore) ListCameras(ctx context.Context) ([]Camera, error) {
	return guard(g, ctx, "list_cameras", func(ctx context.Context) ([]Camera, error) {
		return g.inner.ListCameras(ctx)
	})
}

func (g *GuardedStore) Ping(ctx context.Context) error {
	p, ok := g.inner.(Pinger)
	if !ok {
		return nil
	}
	_, err := guard(g, ctx, "ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.Ping(ctx)
	})
	return err
}
