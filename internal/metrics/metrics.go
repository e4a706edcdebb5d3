package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Relay message directions
const (
	DirectionClientToUpstream = "client_to_upstream"
	DirectionUpstreamToClient = "upstream_to_client"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter

	// Relay metrics
	RelayConnectionsActive prometheus.Gauge
	RelayConnectionsTotal  prometheus.Counter
	RelayMessagesTotal     *prometheus.CounterVec
	RelayErrorsTotal       *prometheus.CounterVec

	// Transcript session metrics
	SessionsActive      prometheus.Gauge
	SessionsExpired     prometheus.Counter
	TranscriptsAppended prometheus.Counter
	TranscriptsDropped  prometheus.Counter

	// Vendor metrics
	VendorRequestsTotal   *prometheus.CounterVec
	VendorRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		RelayConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "relay_connections_active",
				Help: "Number of currently open relay connections",
			},
		),
		RelayConnectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_connections_total",
				Help: "Total number of relay connections accepted",
			},
		),
		RelayMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_messages_total",
				Help: "Total number of messages forwarded by direction",
			},
			[]string{"direction"},
		),
		RelayErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_errors_total",
				Help: "Total number of relay errors by stage",
			},
			[]string{"stage"},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "transcript_sessions_active",
				Help: "Number of live transcript sessions",
			},
		),
		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transcript_sessions_expired_total",
				Help: "Total number of transcript sessions removed by the idle sweep",
			},
		),
		TranscriptsAppended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transcripts_appended_total",
				Help: "Total number of transcript fragments appended",
			},
		),
		TranscriptsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transcripts_dropped_total",
				Help: "Total number of transcript fragments dropped by the pending cap",
			},
		),

		VendorRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vendor_requests_total",
				Help: "Total number of speech vendor calls by operation and status",
			},
			[]string{"op", "status"},
		),
		VendorRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vendor_request_duration_seconds",
				Help:    "Duration of speech vendor calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	// HTTP metrics
	m.registry.MustRegister(m.HTTPRequestsTotal)
	m.registry.MustRegister(m.HTTPRequestDuration)
	m.registry.MustRegister(m.RateLimitedTotal)

	// Relay metrics
	m.registry.MustRegister(m.RelayConnectionsActive)
	m.registry.MustRegister(m.RelayConnectionsTotal)
	m.registry.MustRegister(m.RelayMessagesTotal)
	m.registry.MustRegister(m.RelayErrorsTotal)

	// Transcript session metrics
	m.registry.MustRegister(m.SessionsActive)
	m.registry.MustRegister(m.SessionsExpired)
	m.registry.MustRegister(m.TranscriptsAppended)
	m.registry.MustRegister(m.TranscriptsDropped)

	// Vendor metrics
	m.registry.MustRegister(m.VendorRequestsTotal)
	m.registry.MustRegister(m.VendorRequestDuration)
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
