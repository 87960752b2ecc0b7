// @title           CM360 Config Helper API
// @version         1.0.0
// @description     Helper service for the CM360 ad-serving audit: configuration submission, audit request intake, and the configuration summary report over a shared Google Sheets workbook.
// @basePath        /
// @schemes         http https
//
// @tag.name         System
// @tag.description  Health and summary endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated side-channel port (default: 9090) that is separate from the main API server. This keeps the scrape path off the public ingress and avoids rate-limiting middleware. Configure the port with CMH_TELEMETRY_METRICS_PROMETHEUS_PORT. The endpoint path is always GET /metrics.

// Package main is the entry point for the config helper server binary. It
// dispatches two subcommands, serve and version, via a switch on os.Args so
// the binary's full CLI surface is readable in one place without a cobra
// dependency.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cm360-audit/config-helper/internal/api"
	"github.com/cm360-audit/config-helper/internal/audit"
	"github.com/cm360-audit/config-helper/internal/config"
	"github.com/cm360-audit/config-helper/internal/notify"
	"github.com/cm360-audit/config-helper/internal/safego"
	"github.com/cm360-audit/config-helper/internal/services"
	"github.com/cm360-audit/config-helper/internal/sheets"
	"github.com/cm360-audit/config-helper/internal/store"
	"github.com/cm360-audit/config-helper/internal/telemetry"
)

const (
	version = "0.1.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "version":
		fmt.Printf("CM360 Config Helper v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logger as early as possible so all subsequent log
	// output uses the configured format (json / text) and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Open the config workbook.
	workbook, err := sheets.New(ctx, sheets.Options{
		Backend:         cfg.Workbook.Backend,
		SpreadsheetID:   cfg.Workbook.SpreadsheetID,
		CredentialsFile: cfg.Workbook.CredentialsFile,
		CredentialsJSON: cfg.Workbook.CredentialsJSON,
	})
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	log.Printf("Workbook backend: %s", cfg.Workbook.Backend)

	// Notification channels, ranked: SMTP first, HTTP relay as fallback.
	var channels []notify.Channel
	if cfg.Notifications.Enabled {
		if cfg.Notifications.SMTP.Host != "" {
			channels = append(channels, notify.NewSMTPChannel(notify.SMTPOptions{
				Host:     cfg.Notifications.SMTP.Host,
				Port:     cfg.Notifications.SMTP.Port,
				Username: cfg.Notifications.SMTP.Username,
				Password: cfg.Notifications.SMTP.Password,
				From:     cfg.Notifications.SMTP.From,
				UseTLS:   cfg.Notifications.SMTP.UseTLS,
			}))
		}
		if cfg.Notifications.Relay.URL != "" {
			channels = append(channels, notify.NewRelayChannel(notify.RelayOptions{
				URL:     cfg.Notifications.Relay.URL,
				Headers: cfg.Notifications.Relay.Headers,
				Timeout: time.Duration(cfg.Notifications.Relay.TimeoutSecs) * time.Second,
			}))
		}
	}
	dispatcher := notify.NewDispatcher(channels...)
	log.Printf("Notification channels: %d (enabled: %v)", len(channels), cfg.Notifications.Enabled)

	// Action journal sinks.
	var sinks []audit.Sink
	if cfg.Journal.File.Enabled {
		fileSink, err := audit.NewFileSink(cfg.Journal.File.Path, cfg.Journal.File.MaxSizeMB, cfg.Journal.File.MaxBackups)
		if err != nil {
			return fmt.Errorf("failed to open journal file: %w", err)
		}
		sinks = append(sinks, fileSink)
	}
	if cfg.Journal.Webhook.Enabled {
		sinks = append(sinks, audit.NewWebhookSink(
			cfg.Journal.Webhook.URL,
			cfg.Journal.Webhook.Headers,
			time.Duration(cfg.Journal.Webhook.TimeoutSecs)*time.Second,
		))
	}
	journal := audit.NewJournal(sinks...)
	defer func() {
		if err := journal.Close(); err != nil {
			slog.Error("journal close failed", "error", err)
		}
	}()

	// Repositories and services.
	recipients := store.NewRecipientRepository(workbook)
	thresholds := store.NewThresholdRepository(workbook)

	svcs := api.Services{
		Configs:  services.NewConfigService(recipients, thresholds, dispatcher, journal, cfg.Notifications.AdminEmail),
		Requests: services.NewRequestService(store.NewRequestRepository(workbook), dispatcher, journal, cfg.Notifications.AdminEmail, cfg.Workbook.RequestsURL),
		Summary:  services.NewSummaryService(recipients, thresholds, store.NewExclusionRepository(workbook)),
	}

	// Start Prometheus metrics endpoint on a dedicated port so it is not
	// reachable through the public API ingress path.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go(func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	router, bgServices := api.NewRouter(cfg, svcs)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.GetAddress())
		log.Printf("Base URL: %s", cfg.Server.BaseURL)
		log.Println("Server is ready to accept connections")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop rate limiter goroutines after in-flight requests have drained.
	bgServices.Shutdown()

	log.Println("Server stopped gracefully")
	return nil
}
