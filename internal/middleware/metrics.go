// metrics.go records the per-request Prometheus metrics.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/telemetry"
)

// Metrics records http_requests_total{method, path, status} and
// http_request_duration_seconds{method, path} for every request.
//
// The path label is c.FullPath(), the matched route template (e.g.
// /api/v1/configs), never the raw URL, so user-supplied segments cannot
// inflate label cardinality. Requests matching no route use the literal
// "<no-route>".
//
// Register after gin.Recovery() and RequestID so the status written by error
// handlers is captured.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
