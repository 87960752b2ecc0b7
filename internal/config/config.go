// Package config loads and validates the helper service configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CMH_ prefix (e.g., CMH_WORKBOOK_SPREADSHEET_ID
// overrides workbook.spreadsheet_id in the YAML). This layering allows the same
// binary to run with a config.yaml in local development and with pure environment
// variables in containerized deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Workbook      WorkbookConfig      `mapstructure:"workbook"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Security      SecurityConfig      `mapstructure:"security"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Journal       JournalConfig       `mapstructure:"journal"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	BaseURL      string        `mapstructure:"base_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WorkbookConfig selects and configures the config workbook backend.
type WorkbookConfig struct {
	// Backend is "google" for a hosted Google Sheets workbook or "memory" for
	// the credential-free in-process backend used in local development.
	Backend string `mapstructure:"backend"`
	// SpreadsheetID identifies the hosted workbook (google backend).
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	// CredentialsFile is the path to a service account JSON key file.
	CredentialsFile string `mapstructure:"credentials_file"`
	// CredentialsJSON is the service account key as a string (alternative to
	// credentials_file, useful for environment variables). When both are empty
	// Application Default Credentials are used.
	CredentialsJSON string `mapstructure:"credentials_json"`
	// RequestsURL is the human-facing link to the Audit Requests tab included
	// in admin notification emails. Optional.
	RequestsURL string `mapstructure:"requests_url"`
}

// IdentityConfig holds requester identity resolution settings.
type IdentityConfig struct {
	// JWTSecret is the HMAC secret used to verify Bearer tokens carrying an
	// email claim. Empty disables JWT resolution.
	JWTSecret string `mapstructure:"jwt_secret"`
	// TrustProxyHeader honours X-User-Email from a fronting proxy.
	TrustProxyHeader bool `mapstructure:"trust_proxy_header"`
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	Headers      HeadersConfig      `mapstructure:"headers"`
}

// RateLimitingConfig holds rate limiter settings
type RateLimitingConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// HeadersConfig toggles the protective response headers
type HeadersConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// HSTSMaxAge in seconds; zero disables HSTS for plain-HTTP deployments.
	HSTSMaxAge int `mapstructure:"hsts_max_age"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig holds the Prometheus side-channel settings
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// JournalConfig holds action journal destinations
type JournalConfig struct {
	File    JournalFileConfig    `mapstructure:"file"`
	Webhook JournalWebhookConfig `mapstructure:"webhook"`
}

// JournalFileConfig holds the local JSONL journal settings
type JournalFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// JournalWebhookConfig holds the HTTP journal collector settings
type JournalWebhookConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	URL         string            `mapstructure:"url"`
	Headers     map[string]string `mapstructure:"headers"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
}

// NotificationsConfig holds settings for outbound notification emails
type NotificationsConfig struct {
	// Enabled globally toggles admin notifications. Disabled, every submission
	// reports the "forward manually" text.
	Enabled bool `mapstructure:"enabled"`
	// AdminEmail is the recipient of all notifications.
	AdminEmail string `mapstructure:"admin_email"`
	// SMTP is the primary delivery channel.
	SMTP SMTPConfig `mapstructure:"smtp"`
	// Relay is the fallback HTTP mail relay channel.
	Relay RelayConfig `mapstructure:"relay"`
}

// SMTPConfig holds outbound mail server configuration
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g. smtp.sendgrid.net)
	Host string `mapstructure:"host"`
	// Port is the SMTP server port (587 for STARTTLS, 465 for SMTPS, 25 for plain)
	Port int `mapstructure:"port"`
	// Username for SMTP authentication
	Username string `mapstructure:"username"`
	// Password for SMTP authentication
	Password string `mapstructure:"password"`
	// From is the sender address shown in notification emails
	From string `mapstructure:"from"`
	// UseTLS enables STARTTLS (port 587) or implicit TLS (port 465); false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
}

// RelayConfig holds the HTTP mail relay fallback settings
type RelayConfig struct {
	URL         string            `mapstructure:"url"`
	Headers     map[string]string `mapstructure:"headers"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.base_url",
		"server.read_timeout",
		"server.write_timeout",

		// Workbook
		"workbook.backend",
		"workbook.spreadsheet_id",
		"workbook.credentials_file",
		"workbook.credentials_json",
		"workbook.requests_url",

		// Identity
		"identity.jwt_secret",
		"identity.trust_proxy_header",

		// Security
		"security.rate_limiting.enabled",
		"security.rate_limiting.requests_per_minute",
		"security.rate_limiting.burst",
		"security.headers.enabled",
		"security.headers.hsts_max_age",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.service_name",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",

		// Journal
		"journal.file.enabled",
		"journal.file.path",
		"journal.file.max_size_mb",
		"journal.file.max_backups",
		"journal.webhook.enabled",
		"journal.webhook.url",
		"journal.webhook.timeout_secs",

		// Notifications
		"notifications.enabled",
		"notifications.admin_email",
		"notifications.smtp.host",
		"notifications.smtp.port",
		"notifications.smtp.username",
		"notifications.smtp.password",
		"notifications.smtp.from",
		"notifications.smtp.use_tls",
		"notifications.relay.url",
		"notifications.relay.timeout_secs",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cm360-config-helper")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("CMH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in sensitive fields so secrets can live in
	// infrastructure-managed environment variables.
	cfg.Identity.JWTSecret = expandEnv(cfg.Identity.JWTSecret)
	cfg.Notifications.SMTP.Password = expandEnv(cfg.Notifications.SMTP.Password)
	cfg.Workbook.CredentialsJSON = expandEnv(cfg.Workbook.CredentialsJSON)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands ${VAR} and $VAR references in a config value
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	// Workbook defaults
	v.SetDefault("workbook.backend", "memory")
	v.SetDefault("workbook.spreadsheet_id", "")
	v.SetDefault("workbook.requests_url", "")

	// Identity defaults
	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.trust_proxy_header", false)

	// Security defaults
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 120)
	v.SetDefault("security.rate_limiting.burst", 30)
	v.SetDefault("security.headers.enabled", true)
	v.SetDefault("security.headers.hsts_max_age", 31536000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "cm360-config-helper")
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)

	// Journal defaults
	v.SetDefault("journal.file.enabled", false)
	v.SetDefault("journal.file.path", "./journal.jsonl")
	v.SetDefault("journal.file.max_size_mb", 50)
	v.SetDefault("journal.file.max_backups", 3)
	v.SetDefault("journal.webhook.enabled", false)
	v.SetDefault("journal.webhook.timeout_secs", 10)

	// Notifications defaults
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.admin_email", "")
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("notifications.smtp.use_tls", true)
	v.SetDefault("notifications.relay.timeout_secs", 10)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	switch c.Workbook.Backend {
	case "google":
		if c.Workbook.SpreadsheetID == "" {
			return fmt.Errorf("workbook.spreadsheet_id is required when using the google backend")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid workbook backend: %s (must be google or memory)", c.Workbook.Backend)
	}

	if c.Notifications.Enabled {
		if c.Notifications.AdminEmail == "" {
			return fmt.Errorf("notifications.admin_email is required when notifications are enabled")
		}
		if c.Notifications.SMTP.Host == "" && c.Notifications.Relay.URL == "" {
			return fmt.Errorf("notifications require at least one channel: set notifications.smtp.host or notifications.relay.url")
		}
		if c.Notifications.SMTP.Host != "" && c.Notifications.SMTP.From == "" {
			return fmt.Errorf("notifications.smtp.from is required when SMTP is configured")
		}
	}

	if c.Journal.Webhook.Enabled && c.Journal.Webhook.URL == "" {
		return fmt.Errorf("journal.webhook.url is required when the webhook journal is enabled")
	}
	if c.Journal.File.Enabled && c.Journal.File.Path == "" {
		return fmt.Errorf("journal.file.path is required when the file journal is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
