// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Billing  BillingConfig  `yaml:"billing"`
	Plans    []PlanConfig   `yaml:"plans"`
	Reset    ResetConfig    `yaml:"reset"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// BillingConfig configures the payment provider.
// Use "stripe" for live billing or "none" to disable.
type BillingConfig struct {
	Mode          string `yaml:"mode"`
	SecretKey     string `yaml:"secret_key,omitempty"`
	PublicKey     string `yaml:"public_key,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// PlanConfig configures a subscription plan's provider price ids.
type PlanConfig struct {
	Tier           string `yaml:"tier"`
	MonthlyPriceID string `yaml:"monthly_price_id"`
	MeteredPriceID string `yaml:"metered_price_id,omitempty"`
}

// ResetConfig configures the monthly reset sweeper.
type ResetConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for container deployments where no config file is mounted.
//
// Environment variables:
//
//	STAMPLY_SERVER_HOST            - Server host (default: 0.0.0.0)
//	STAMPLY_SERVER_PORT            - Server port (default: 8080)
//	STAMPLY_DATABASE_DSN           - Database path (default: stamply.db)
//	STAMPLY_BILLING_MODE           - Billing mode: stripe or none (default: none)
//	STAMPLY_STRIPE_SECRET_KEY      - Stripe API secret key
//	STAMPLY_STRIPE_PUBLIC_KEY      - Stripe publishable key
//	STAMPLY_STRIPE_WEBHOOK_SECRET  - Stripe webhook signing secret
//	STAMPLY_RESET_SWEEP_INTERVAL   - Reset sweep interval (default: 1h)
//	STAMPLY_LOG_LEVEL              - Log level (default: info)
//	STAMPLY_LOG_FORMAT             - Log format: json or console (default: json)
//	STAMPLY_METRICS_ENABLED        - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// PriceTable builds the {tier x billing type} price lookup from the plans
// section.
func (c *Config) PriceTable() billing.PriceTable {
	entries := make(map[tier.Tier]map[billing.BillingType]string, len(c.Plans))
	for _, p := range c.Plans {
		entries[tier.Parse(p.Tier)] = map[billing.BillingType]string{
			billing.BillingMonthly: p.MonthlyPriceID,
			billing.BillingMetered: p.MeteredPriceID,
		}
	}
	return billing.NewPriceTable(entries)
}

// applyEnvOverrides applies STAMPLY_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STAMPLY_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STAMPLY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STAMPLY_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("STAMPLY_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("STAMPLY_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("STAMPLY_BILLING_MODE"); v != "" {
		cfg.Billing.Mode = v
	}
	if v := os.Getenv("STAMPLY_STRIPE_SECRET_KEY"); v != "" {
		cfg.Billing.SecretKey = v
	}
	if v := os.Getenv("STAMPLY_STRIPE_PUBLIC_KEY"); v != "" {
		cfg.Billing.PublicKey = v
	}
	if v := os.Getenv("STAMPLY_STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Billing.WebhookSecret = v
	}

	if v := os.Getenv("STAMPLY_RESET_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reset.SweepInterval = d
		}
	}

	if v := os.Getenv("STAMPLY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STAMPLY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("STAMPLY_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "stamply.db"
	}

	if cfg.Billing.Mode == "" {
		cfg.Billing.Mode = "none"
	}

	if cfg.Reset.SweepInterval == 0 {
		cfg.Reset.SweepInterval = time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	validBillingModes := map[string]bool{"none": true, "stripe": true}
	if !validBillingModes[cfg.Billing.Mode] {
		return fmt.Errorf("billing.mode must be 'none' or 'stripe', got %q", cfg.Billing.Mode)
	}
	if cfg.Billing.Mode == "stripe" {
		if cfg.Billing.SecretKey == "" {
			return fmt.Errorf("billing.secret_key is required when billing.mode is 'stripe'")
		}
		if cfg.Billing.WebhookSecret == "" {
			return fmt.Errorf("billing.webhook_secret is required when billing.mode is 'stripe'")
		}
	}

	for _, p := range cfg.Plans {
		if tier.Parse(p.Tier) == tier.Free && p.Tier != string(tier.Free) {
			return fmt.Errorf("plans: unknown tier %q", p.Tier)
		}
		if p.Tier == string(tier.Free) {
			return fmt.Errorf("plans: the free tier has no price ids")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}
