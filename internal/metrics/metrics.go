// Package metrics exposes rapport's Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the metric collectors. A nil *Manager is valid and records
// nothing, so components can take one optionally.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	inferences        *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
	externalCalls     *prometheus.CounterVec
	backfillPairs     *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager on a fresh registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rapport",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.inferences = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "inferences_total",
		Help:      "Connection inferences by highest label and feature source",
	}, []string{"label", "source"})

	m.inferenceDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "inference_duration_seconds",
		Help:      "Wall time of a full inference including cache lookup",
		Buckets:   m.histogramBuckets,
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cache_lookups_total",
		Help:      "Summary cache lookups by result (hit, miss)",
	}, []string{"result"})

	m.externalCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "external_extractor_calls_total",
		Help:      "External feature extractor attempts by outcome",
	}, []string{"outcome"})

	m.backfillPairs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "backfill_pairs_total",
		Help:      "Pairs handled by backfill runs by outcome",
	}, []string{"outcome"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status",
	}, []string{"route", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration by route pattern and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordInference counts a completed inference.
func (m *Manager) RecordInference(label, source string, d time.Duration) {
	if m == nil {
		return
	}
	m.inferences.WithLabelValues(label, source).Inc()
	m.inferenceDuration.Observe(d.Seconds())
}

// RecordCacheLookup counts a summary cache hit or miss.
func (m *Manager) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordExternalCall counts one external extractor attempt.
func (m *Manager) RecordExternalCall(outcome string) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(outcome).Inc()
}

// RecordBackfillPair counts one backfilled pair.
func (m *Manager) RecordBackfillPair(outcome string) {
	if m == nil {
		return
	}
	m.backfillPairs.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest counts a served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
