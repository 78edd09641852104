package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the warbler server.
// All Record* methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CacheRequestsTotal *prometheus.CounterVec
	EventsTotal        *prometheus.CounterVec
	ActionsTotal       *prometheus.CounterVec
	EventQueueLength   prometheus.Gauge
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_http_requests_total",
			Help: "Total number of HTTP requests by route template and status",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warbler_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	cacheRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_cache_requests_total",
			Help: "Cache lookups by cache name and result (hit, miss, error)",
		},
		[]string{"cache", "result"},
	)

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_events_total",
			Help: "Domain events by type and result (published, failed, dropped)",
		},
		[]string{"type", "result"},
	)

	actionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warbler_actions_total",
			Help: "User actions such as signup, login, follow and like",
		},
		[]string{"action"},
	)

	eventQueueLength := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warbler_event_queue_length",
			Help: "Sampled length of the event dispatch queue",
		},
	)

	registry.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		cacheRequestsTotal,
		eventsTotal,
		actionsTotal,
		eventQueueLength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry:            registry,
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		CacheRequestsTotal:  cacheRequestsTotal,
		EventsTotal:         eventsTotal,
		ActionsTotal:        actionsTotal,
		EventQueueLength:    eventQueueLength,
	}
}

// GetRegistry returns the Prometheus registry for this metrics instance
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordHTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) RecordCache(cache, result string) {
	if m == nil {
		return
	}
	m.CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) RecordEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) RecordAction(action string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) SetEventQueueLength(n int) {
	if m == nil {
		return
	}
	m.EventQueueLength.Set(float64(n))
}
