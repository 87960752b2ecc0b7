// Package middleware provides the Gin HTTP middleware stack for the helper
// service. All middleware here is registered in internal/api/router.go before
// any route handlers so every request is covered regardless of handler.
//
// Ordering matters and is enforced by the router:
//
//	Recovery → RequestID → Metrics → SecurityHeaders → Identity → RateLimit → Handler
//
// RequestID runs first so all downstream logging can carry the id. Identity
// runs before rate limiting so authenticated users are limited per user rather
// than per source address.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header carrying the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request id is stored.
	RequestIDKey = "request_id"
)

// RequestID ensures every request carries a unique identifier. An inbound
// X-Request-ID (from a load balancer or gateway) is reused unchanged;
// otherwise a fresh UUID v4 is generated. The id is stored in the context
// under RequestIDKey and echoed in the response header so clients can
// correlate their request with server-side log entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
