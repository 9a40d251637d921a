// Package metrics provides Prometheus metrics for the VoltGuard backend
// (RED plus fleet-security gauges). Scrapeable at /metrics; dashboards and
// runbooks can rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voltguard"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "path"},
	)

	// AuthLoginAttemptsTotal counts login attempts by result
	// (success | failure | blocked | second_factor_pending).
	AuthLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_login_attempts_total",
			Help:      "Total number of login attempts by result.",
		},
		[]string{"result"},
	)

	// RelayCommandsTotal counts relay commands by result
	// (success | forbidden | unavailable | failed).
	RelayCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_commands_total",
			Help:      "Total number of relay commands by result.",
		},
		[]string{"result"},
	)

	// TelemetrySamplesTotal counts ingested telemetry samples.
	TelemetrySamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_samples_total",
			Help:      "Total number of ingested telemetry samples.",
		},
	)

	// SecurityAlertsCreatedTotal counts alerts created by kind.
	SecurityAlertsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_alerts_created_total",
			Help:      "Total number of security alerts created by kind.",
		},
		[]string{"kind"},
	)

	// WebSocketConnectionsActive is the current number of event stream clients.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket connections.",
		},
	)
)
