// Package notify pushes newly raised alerts to NATS in the background.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/technosupport/incident-analytics/internal/alerts"
)

type AlertSource interface {
	Collect(ctx context.Context) ([]alerts.Alert, error)
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Observer receives gauge and counter updates. metrics.Collector implements it.
type Observer interface {
	SetActiveAlerts(bySeverity map[string]int)
	RecordNotification(result string)
}

type Config struct {
	Interval    time.Duration
	MinSeverity alerts.Severity
}

type Notifier struct {
	cfg       Config
	source    AlertSource
	publisher Publisher
	dedup     *Dedup
	observer  Observer
	now       func() time.Time

	quit chan struct{}
	wg   sync.WaitGroup
}

func NewNotifier(cfg Config, source AlertSource, pub Publisher, dedup *Dedup, obs Observer) *Notifier {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MinSeverity == "" {
		cfg.MinSeverity = alerts.SeverityHigh
	}
	return &Notifier{
		cfg:       cfg,
		source:    source,
		publisher: pub,
		dedup:     dedup,
		observer:  obs,
		now:       time.Now,
		quit:      make(chan struct{}),
	}
}

func (n *Notifier) Start() {
	n.wg.Add(1)
	go n.run()
}

func (n *Notifier) Stop() {
	close(n.quit)
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-n.quit
		cancel()
	}()

	ticker := time.NewTicker(n.cfg.Interval)
	defer ticker.Stop()

	n.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			n.Poll(ctx)
		case <-n.quit:
			return
		}
	}
}

// Poll runs one synthesis pass and publishes every qualifying alert not seen
// recently. It returns the number published.
func (n *Notifier) Poll(ctx context.Context) int {
	all, err := n.source.Collect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("[NOTIFY] alert synthesis failed")
		}
		return 0
	}

	active := map[string]int{
		string(alerts.SeverityCritical): 0,
		string(alerts.SeverityHigh):     0,
		string(alerts.SeverityMedium):   0,
		string(alerts.SeverityLow):      0,
	}
	for _, a := range all {
		active[string(a.Severity)]++
	}
	if n.observer != nil {
		n.observer.SetActiveAlerts(active)
	}

	alerts.Sort(all)
	floor := n.cfg.MinSeverity.Rank()
	published := 0
	for _, a := range all {
		if a.Severity.Rank() < floor || n.dedup.Seen(a.ID) {
			continue
		}
		err := n.publisher.Publish(ctx, Message{Alert: a, PublishedAt: n.now().UTC()})
		if err != nil {
			n.record("error")
			log.Error().Err(err).Str("alert_id", a.ID).Msg("[NOTIFY] publish failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		n.dedup.Mark(a.ID)
		n.record("published")
		published++
	}
	if published > 0 {
		log.Info().Int("count", published).Msg("[NOTIFY] alerts published")
	}
	return published
}

func (n *Notifier) record(result string) {
	if n.observer != nil {
		n.observer.RecordNotification(result)
	}
}
