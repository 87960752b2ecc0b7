// Package api wires together all HTTP routes for the CM360 config helper.
//
// Route grouping philosophy:
//   - Read routes (/api/v1/configs, /api/v1/summary, /configs/new) share a
//     generous rate limit. They are served from the workbook or the in-process
//     config cache and are cheap.
//   - Write routes (POST /api/v1/configs, POST /api/v1/requests) append rows to
//     the shared audit workbook and email the admin, so they get a much tighter
//     limit keyed by requester identity.
//
// Identity is attribution, not authorization: every route accepts anonymous
// callers, and the resolved email only lands in the Submitted By and Requested
// By columns.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/config"
	"github.com/cm360-audit/config-helper/internal/middleware"
	"github.com/cm360-audit/config-helper/internal/services"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// Services holds the domain services the router exposes over HTTP.
type Services struct {
	Configs  *services.ConfigService
	Requests *services.RequestService
	Summary  *services.SummaryService
}

// BackgroundServices holds resources that must be stopped during graceful
// shutdown. The caller (cmd/server) is responsible for calling Shutdown() when
// the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, svcs Services) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	if cfg.Security.Headers.Enabled {
		hc := middleware.DefaultSecurityHeadersConfig()
		hc.HSTSMaxAge = cfg.Security.Headers.HSTSMaxAge
		router.Use(middleware.SecurityHeaders(hc))
	}

	router.Use(middleware.Identity(middleware.IdentityConfig{
		JWTSecret:        cfg.Identity.JWTSecret,
		TrustProxyHeader: cfg.Identity.TrustProxyHeader,
	}))

	var readLimit, writeLimit gin.HandlerFunc
	if cfg.Security.RateLimiting.Enabled {
		readCfg := middleware.DefaultRateLimitConfig()
		if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
			readCfg.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
		}
		if cfg.Security.RateLimiting.Burst > 0 {
			readCfg.BurstSize = cfg.Security.RateLimiting.Burst
		}
		readLimiter := middleware.NewRateLimiter(readCfg)
		writeLimiter := middleware.NewRateLimiter(middleware.WriteRateLimitConfig())
		bg.rateLimiters = append(bg.rateLimiters, readLimiter, writeLimiter)
		readLimit = middleware.RateLimit(readLimiter)
		writeLimit = middleware.RateLimit(writeLimiter)
	}

	router.GET("/health", healthHandler())

	router.GET("/configs/new", maybeUse(readLimit), NewConfigFormHandler(cfg))

	v1 := router.Group("/api/v1")
	{
		reads := v1.Group("")
		if readLimit != nil {
			reads.Use(readLimit)
		}
		reads.GET("/configs", ListConfigsHandler(svcs.Configs))
		reads.GET("/summary", SummaryHandler(svcs.Summary))

		writes := v1.Group("")
		if writeLimit != nil {
			writes.Use(writeLimit)
		}
		writes.POST("/configs", CreateConfigHandler(svcs.Configs))
		writes.POST("/requests", CreateRequestHandler(svcs.Requests))
	}

	return router, bg
}

// maybeUse adapts an optional middleware into a handler chain slot.
func maybeUse(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h
}

// @Summary      Health check
// @Description  Returns service liveness.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Router       /health [get]
func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// writeError maps domain errors onto HTTP responses. Validation problems are
// the caller's fault; a missing sheet means the workbook needs to be synced.
// Service errors are written verbatim: they are already phrased for the
// submitter and state exactly which rows were written before the failure.
func writeError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
		return
	}
	if errors.Is(err, sheets.ErrTabNotFound) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "A required sheet is missing from the workbook. Please re-run the configuration sync and try again.",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
