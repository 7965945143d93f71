package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains every service metric.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRateLimited     prometheus.Counter

	// Gateway metrics
	GatewayOperations *prometheus.CounterVec
	GatewayDuration   *prometheus.HistogramVec

	// Change event metrics
	EventsPublished *prometheus.CounterVec
	EventsDelivered *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	EventsFailed    *prometheus.CounterVec
	EventQueueDepth prometheus.Gauge
}

// New creates the service metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "armory",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		HTTPRateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),

		GatewayOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "gateway",
				Name:      "operations_total",
				Help:      "Total number of gateway operations by outcome",
			},
			[]string{"resource", "operation", "outcome"},
		),

		GatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "armory",
				Subsystem: "gateway",
				Name:      "operation_duration_seconds",
				Help:      "Gateway operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource", "operation"},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of change events accepted for delivery",
			},
			[]string{"resource", "operation"},
		),

		EventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "events",
				Name:      "delivered_total",
				Help:      "Total number of change events delivered to the sink",
			},
			[]string{"sink"},
		),

		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "events",
				Name:      "dropped_total",
				Help:      "Total number of change events dropped",
			},
			[]string{"reason"},
		),

		EventsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "armory",
				Subsystem: "events",
				Name:      "delivery_failures_total",
				Help:      "Total number of failed delivery attempts",
			},
			[]string{"sink"},
		),

		EventQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "armory",
				Subsystem: "events",
				Name:      "queue_depth",
				Help:      "Number of change events waiting for delivery",
			},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.HTTPRateLimited,
		m.GatewayOperations,
		m.GatewayDuration,
		m.EventsPublished,
		m.EventsDelivered,
		m.EventsDropped,
		m.EventsFailed,
		m.EventQueueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited increments the rate limiter rejection counter.
func (m *Metrics) RecordRateLimited() {
	m.HTTPRateLimited.Inc()
}

// RecordGatewayOperation records one gateway call and its outcome.
func (m *Metrics) RecordGatewayOperation(resource, operation, outcome string, duration time.Duration) {
	m.GatewayOperations.WithLabelValues(resource, operation, outcome).Inc()
	m.GatewayDuration.WithLabelValues(resource, operation).Observe(duration.Seconds())
}

// RecordEventPublished increments the accepted change event counter.
func (m *Metrics) RecordEventPublished(resource, operation string) {
	m.EventsPublished.WithLabelValues(resource, operation).Inc()
}

// RecordEventDelivered increments the delivered change event counter.
func (m *Metrics) RecordEventDelivered(sink string) {
	m.EventsDelivered.WithLabelValues(sink).Inc()
}

// RecordEventDropped increments the dropped change event counter.
func (m *Metrics) RecordEventDropped(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// RecordEventFailed increments the failed delivery attempt counter.
func (m *Metrics) RecordEventFailed(sink string) {
	m.EventsFailed.WithLabelValues(sink).Inc()
}

// SetEventQueueDepth updates the queue depth gauge.
func (m *Metrics) SetEventQueueDepth(depth int) {
	m.EventQueueDepth.Set(float64(depth))
}
