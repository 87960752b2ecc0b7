// Package telemetry provides application-level observability for the CM360
// audit configuration helper.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<CMH_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped by a Prometheus server every 15–60 seconds.
// It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Configuration creation and audit request intake counters
//   - Notification delivery attempt counters (per channel, per outcome)
//   - Configuration cache refresh counter and active-config gauge
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/configs) rather
// than the raw request URL to prevent unbounded label cardinality from
// user-supplied path or query segments.
//
// # Usage
//
// Import the package and use an exported var:
//
//	telemetry.ConfigCreationsTotal.Inc()
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template, NOT the raw URL.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.  Use histogram_quantile to compute
// latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Workflow metrics, incremented by the service layer once the spreadsheet
// writes for an operation have all succeeded.
//
// ConfigCreationsTotal counts new configuration IDs registered through the
// helper (one recipients row plus the per-flag threshold rows).
//
// AuditRequestsTotal counts manual audit requests appended to the request log.
//
// Example PromQL queries:
//   - Configs registered per day:  increase(config_creations_total[24h])
//   - Request intake rate:         rate(audit_requests_total[1h])
var (
	ConfigCreationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "config_creations_total",
			Help: "Total number of audit configurations created through the helper.",
		},
	)

	AuditRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_requests_total",
			Help: "Total number of manual audit requests logged through the helper.",
		},
	)
)

// NotificationAttemptsTotal is a CounterVec with labels {channel, outcome}
// incremented once per delivery attempt by the notification dispatcher.
// channel is the ranked channel name ("smtp", "relay"); outcome is "delivered"
// or "failed".
//
// Example PromQL queries:
//   - Fallback engagement:  rate(notification_attempts_total{channel="relay"}[1h])
//   - Total mail failures:  sum(rate(notification_attempts_total{outcome="failed"}[1h]))
var NotificationAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_attempts_total",
		Help: "Total number of notification delivery attempts, by channel and outcome.",
	},
	[]string{"channel", "outcome"},
)

// Cache metrics.
//
// ConfigCacheRefreshesTotal is a CounterVec with label {trigger} incremented
// each time the in-memory configuration list is rebuilt from the spreadsheet.
// trigger is "miss" (cache was empty) or "forced" (caller requested a bypass).
//
// ActiveConfigsCount is a Gauge updated on every cache refresh with the number
// of distinct configuration IDs found in the recipients tab.
var (
	ConfigCacheRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_cache_refreshes_total",
			Help: "Total number of configuration cache rebuilds from the spreadsheet, by trigger.",
		},
		[]string{"trigger"},
	)

	ActiveConfigsCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_configs_count",
			Help: "Number of distinct configuration IDs in the recipients tab at the last cache refresh.",
		},
	)
)
