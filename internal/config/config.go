// Package config loads deployment settings for the controller, the bridge agent and the CLI.
// Values come from defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the controller
	HTTPPort int

	// Shared credential presented by bridges in X-Bridge-Token
	BridgeSecret string

	// Bearer token for POST /tenants. Empty disables tenant creation.
	AdminSecret string

	// Queue policy
	LeaseTTL            time.Duration
	BackoffBase         time.Duration
	MaxAttempts         int
	DefaultPaperWidthMm int

	// Layout
	Locale         string
	CurrencySymbol string

	LogLevel     string
	OTELEndpoint string

	// URL of the controller (e.g., "http://localhost:6161")
	ControllerURL string

	// Bridge agent
	BridgeID           string
	BridgeTenantSlug   string
	BridgeBatchSize    int
	BridgePollInterval time.Duration
	BridgeMaxBackoff   time.Duration
	BridgeOutputDir    string
}

// env maps config keys to environment variables.
var env = map[string]string{
	"database_url":           "DATABASE_URL",
	"http_port":              "PORT",
	"bridge_secret":          "BRIDGE_SECRET",
	"admin_secret":           "ADMIN_SECRET",
	"lease_ttl_ms":           "PRINT_LEASE_TTL_MS",
	"backoff_base_ms":        "PRINT_BACKOFF_BASE_MS",
	"max_attempts":           "PRINT_MAX_ATTEMPTS",
	"default_paper_width_mm": "PRINT_DEFAULT_PAPER_WIDTH_MM",
	"locale":                 "PRINT_LOCALE",
	"currency_symbol":        "PRINT_CURRENCY_SYMBOL",
	"log_level":              "LOG_LEVEL",
	"otel_endpoint":          "OTEL_EXPORTER_OTLP_ENDPOINT",
	"controller_url":         "CONTROLLER_URL",
	"bridge_id":              "BRIDGE_ID",
	"bridge_tenant_slug":     "BRIDGE_TENANT_SLUG",
	"bridge_batch_size":      "BRIDGE_BATCH_SIZE",
	"bridge_poll_interval":   "BRIDGE_POLL_INTERVAL",
	"bridge_max_backoff":     "BRIDGE_MAX_BACKOFF",
	"bridge_output_dir":      "BRIDGE_OUTPUT_DIR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 6161)
	v.SetDefault("lease_ttl_ms", 60000)
	v.SetDefault("backoff_base_ms", 2000)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("default_paper_width_mm", 80)
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("currency_symbol", "R$")
	v.SetDefault("log_level", "info")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("controller_url", "http://localhost:6161")
	v.SetDefault("bridge_batch_size", 3)
	v.SetDefault("bridge_poll_interval", 2*time.Second)
	v.SetDefault("bridge_max_backoff", 30*time.Second)

	if host, err := os.Hostname(); err == nil {
		v.SetDefault("bridge_id", host)
	}
}

// Load reads the configuration. An empty path looks for comanda.yaml in the
// working directory and ignores it when absent; an explicit path must exist.
// Role specific requirements are checked by ValidateController and ValidateBridge.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("comanda")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	return &Config{
		DatabaseURL:         v.GetString("database_url"),
		HTTPPort:            v.GetInt("http_port"),
		BridgeSecret:        v.GetString("bridge_secret"),
		AdminSecret:         v.GetString("admin_secret"),
		LeaseTTL:            time.Duration(v.GetInt64("lease_ttl_ms")) * time.Millisecond,
		BackoffBase:         time.Duration(v.GetInt64("backoff_base_ms")) * time.Millisecond,
		MaxAttempts:         v.GetInt("max_attempts"),
		DefaultPaperWidthMm: v.GetInt("default_paper_width_mm"),
		Locale:              v.GetString("locale"),
		CurrencySymbol:      v.GetString("currency_symbol"),
		LogLevel:            v.GetString("log_level"),
		OTELEndpoint:        v.GetString("otel_endpoint"),
		ControllerURL:       v.GetString("controller_url"),
		BridgeID:            v.GetString("bridge_id"),
		BridgeTenantSlug:    v.GetString("bridge_tenant_slug"),
		BridgeBatchSize:     v.GetInt("bridge_batch_size"),
		BridgePollInterval:  v.GetDuration("bridge_poll_interval"),
		BridgeMaxBackoff:    v.GetDuration("bridge_max_backoff"),
		BridgeOutputDir:     v.GetString("bridge_output_dir"),
	}, nil
}

func required(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required (env: %s)", key, env[key])
	}
	return nil
}

// ValidateController checks the settings the controller cannot start without.
func (c *Config) ValidateController() error {
	if err := required("database_url", c.DatabaseURL); err != nil {
		return err
	}
	if err := required("bridge_secret", c.BridgeSecret); err != nil {
		return err
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("lease_ttl_ms must be positive (env: %s)", env["lease_ttl_ms"])
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff_base_ms must be positive (env: %s)", env["backoff_base_ms"])
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1 (env: %s)", env["max_attempts"])
	}
	return nil
}

// ValidateBridge checks the settings the bridge agent cannot start without.
func (c *Config) ValidateBridge() error {
	if err := required("controller_url", c.ControllerURL); err != nil {
		return err
	}
	if err := required("bridge_secret", c.BridgeSecret); err != nil {
		return err
	}
	if err := required("bridge_tenant_slug", c.BridgeTenantSlug); err != nil {
		return err
	}
	if err := required("bridge_id", c.BridgeID); err != nil {
		return err
	}
	if c.BridgeBatchSize < 1 || c.BridgeBatchSize > 10 {
		return fmt.Errorf("bridge_batch_size must be between 1 and 10 (env: %s)", env["bridge_batch_size"])
	}
	return nil
}
