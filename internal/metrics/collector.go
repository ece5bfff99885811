package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	storeReads    *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	activeAlerts  *prometheus.GaugeVec
	notifications *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{registry: reg}

	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_analytics_http_requests_total",
		Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})
	reg.MustRegister(c.httpRequests)

	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incident_analytics_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(c.httpDuration)

	c.storeReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_analytics_store_reads_total",
		Help: "Incident store reads by operation and result",
	}, []string{"op", "result"})
	reg.MustRegister(c.storeReads)

	c.storeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "incident_analytics_store_read_duration_seconds",
		Help:    "Incident store read latency",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"op"})
	reg.MustRegister(c.storeDuration)

	c.breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incident_analytics_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})
	reg.MustRegister(c.breakerState)

	c.activeAlerts = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "incident_analytics_active_alerts",
		Help: "Alerts in the last synthesized feed by severity",
	}, []string{"severity"})
	reg.MustRegister(c.activeAlerts)

	c.notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_analytics_notifications_total",
		Help: "Alert notifications by result (published, duplicate, failed)",
	}, []string{"result"})
	reg.MustRegister(c.notifications)

	c.rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_analytics_rate_limit_total",
		Help: "Rate limit decisions by result (allowed, blocked, error)",
	}, []string{"result"})
	reg.MustRegister(c.rateLimited)

	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(route, method string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (c *Collector) ObserveStoreRead(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.storeReads.WithLabelValues(op, result).Inc()
	c.storeDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) SetBreakerState(name string, state int) {
	c.breakerState.WithLabelValues(name).Set(float64(state))
}

// SetActiveAlerts replaces the per-severity gauge values.
func (c *Collector) SetActiveAlerts(bySeverity map[string]int) {
	c.activeAlerts.Reset()
	for sev, n := range bySeverity {
		c.activeAlerts.WithLabelValues(sev).Set(float64(n))
	}
}

func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordRateLimit(result string) {
	c.rateLimited.WithLabelValues(result).Inc()
}
