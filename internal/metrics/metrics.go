// Package metrics exposes Prometheus metrics for syncs, webhooks and the
// HTTP API on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "revattr"

// Upsert outcomes.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

// Manager owns the registry and every collector.
type Manager struct {
	registry *prometheus.Registry

	syncRuns        *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	dealUpserts     *prometheus.CounterVec
	defaultedScores *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	httpRequests    *prometheus.HistogramVec
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	buckets        []float64
	processMetrics bool
}

// WithHistogramBuckets sets the HTTP duration buckets.
func WithHistogramBuckets(b []float64) Option {
	return func(o *options) {
		if len(b) > 0 {
			o.buckets = b
		}
	}
}

// WithProcessMetrics adds Go runtime and process collectors.
func WithProcessMetrics() Option {
	return func(o *options) {
		o.processMetrics = true
	}
}

// New creates a Manager with its own registry.
func New(opts ...Option) *Manager {
	o := options{buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&o)
	}

	reg := prometheus.NewRegistry()
	if o.processMetrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	auto := promauto.With(reg)

	return &Manager{
		registry: reg,
		syncRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by result.",
		}, []string{"result"}),
		syncDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		dealUpserts: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "deal_upserts_total",
			Help:      "Deal upserts by outcome.",
		}, []string{"outcome"}),
		defaultedScores: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "defaulted_total",
			Help:      "Scores that fell back to a default, by kind.",
		}, []string{"kind"}),
		webhookEvents: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events received by subscription type.",
		}, []string{"type"}),
		httpRequests: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   o.buckets,
		}, []string{"route", "method", "status"}),
	}
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSyncRun counts a finished run.
func (m *Manager) RecordSyncRun(success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	m.syncRuns.WithLabelValues(result).Inc()
	m.syncDuration.Observe(d.Seconds())
}

// RecordUpsert counts one deal upsert.
func (m *Manager) RecordUpsert(outcome string) {
	m.dealUpserts.WithLabelValues(outcome).Inc()
}

// RecordDefaulted counts n defaulted scores of kind.
func (m *Manager) RecordDefaulted(kind string, n int) {
	if n > 0 {
		m.defaultedScores.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordWebhookEvent counts one webhook event.
func (m *Manager) RecordWebhookEvent(subscriptionType string) {
	if subscriptionType == "" {
		subscriptionType = "unknown"
	}
	m.webhookEvents.WithLabelValues(subscriptionType).Inc()
}

// ObserveHTTP records one handled request.
func (m *Manager) ObserveHTTP(route, method string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
