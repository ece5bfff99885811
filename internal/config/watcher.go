package config

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/ratelimit"
)

// Tunables is the subset of Config that may change without a restart.
type Tunables struct {
	Thresholds alerts.Thresholds
	RateLimit  ratelimit.LimitConfig
}

func (c Config) Tunables() Tunables {
	return Tunables{Thresholds: c.Alerts.Thresholds, RateLimit: c.RateLimit}
}

// Watcher keeps the live Tunables in sync with the config file. A reload that
// fails to parse or validate leaves the previous values in place.
type Watcher struct {
	path         string
	pollInterval time.Duration
	current      atomic.Pointer[Tunables]

	mu      sync.Mutex
	modTime time.Time
	onSwap  []func(Tunables)
}

func NewWatcher(path string, initial Config) *Watcher {
	w := &Watcher{path: path, pollInterval: 60 * time.Second}
	t := initial.Tunables()
	w.current.Store(&t)
	if fi, err := os.Stat(path); err == nil {
		w.modTime = fi.ModTime()
	}
	return w
}

func (w *Watcher) Current() Tunables {
	return *w.current.Load()
}

// Thresholds satisfies alerts.ThresholdSource.
func (w *Watcher) Thresholds() alerts.Thresholds {
	return w.current.Load().Thresholds
}

func (w *Watcher) RateLimit() ratelimit.LimitConfig {
	return w.current.Load().RateLimit
}

// OnChange registers fn to run after every successful swap.
func (w *Watcher) OnChange(fn func(Tunables)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSwap = append(w.onSwap, fn)
}

// Reload re-reads the file and swaps the tunables if the result is valid.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("[CONFIG] reload rejected, keeping previous values")
		return err
	}
	t := cfg.Tunables()
	w.current.Store(&t)
	log.Info().
		Dur("camera_window", t.Thresholds.CameraWindow).
		Int("camera_min_incidents", t.Thresholds.CameraMinIncidents).
		Int("backlog", t.Thresholds.Backlog).
		Int("rate_limit", t.RateLimit.Rate).
		Msg("[CONFIG] tunables reloaded")

	w.mu.Lock()
	hooks := append([]func(Tunables){}, w.onSwap...)
	w.mu.Unlock()
	for _, fn := range hooks {
		fn(t)
	}
	return nil
}

// reloadIfChanged is the polling path; it only reloads on a newer mtime.
func (w *Watcher) reloadIfChanged() {
	fi, err := os.Stat(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	changed := fi.ModTime().After(w.modTime)
	if changed {
		w.modTime = fi.ModTime()
	}
	w.mu.Unlock()
	if changed {
		_ = w.Reload()
	}
}

// Start watches the file with fsnotify and always runs a slow polling loop
// next to it, which also covers a file that does not exist yet.
func (w *Watcher) Start(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("[CONFIG] fsnotify unavailable, polling only")
		fw = nil
	} else if err := fw.Add(w.path); err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("[CONFIG] cannot watch file, polling only")
		fw.Close()
		fw = nil
	}

	if fw != nil {
		go func() {
			defer fw.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-fw.Events:
					if !ok {
						return
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						// Editors often write in several steps.
						time.Sleep(100 * time.Millisecond)
						if fi, err := os.Stat(w.path); err == nil {
							w.mu.Lock()
							w.modTime = fi.ModTime()
							w.mu.Unlock()
						}
						_ = w.Reload()
					}
				case err, ok := <-fw.Errors:
					if !ok {
						return
					}
					log.Warn().Err(err).Msg("[CONFIG] watcher error")
				}
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.reloadIfChanged()
			}
		}
	}()
}
