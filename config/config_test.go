package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stamply/stamply/config"
	"github.com/stamply/stamply/domain/billing"
	"github.com/stamply/stamply/domain/tier"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 15s

database:
  driver: "sqlite"
  dsn: ":memory:"

billing:
  mode: "stripe"
  secret_key: "sk_test_xxx"
  webhook_secret: "whsec_xxx"

plans:
  - tier: "basic"
    monthly_price_id: "price_basic_m"
    metered_price_id: "price_basic_u"
  - tier: "premium"
    monthly_price_id: "price_premium_m"

reset:
  sweep_interval: 30m

logging:
  level: "debug"
  format: "console"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Billing.Mode != "stripe" {
		t.Errorf("Billing.Mode = %s, want stripe", cfg.Billing.Mode)
	}
	if len(cfg.Plans) != 2 {
		t.Fatalf("len(Plans) = %d, want 2", len(cfg.Plans))
	}
	if cfg.Plans[0].Tier != "basic" {
		t.Errorf("Plans[0].Tier = %s, want basic", cfg.Plans[0].Tier)
	}
	if cfg.Reset.SweepInterval != 30*time.Minute {
		t.Errorf("Reset.SweepInterval = %v, want 30m", cfg.Reset.SweepInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "{}\n")

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("default Database.Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "stamply.db" {
		t.Errorf("default Database.DSN = %s, want stamply.db", cfg.Database.DSN)
	}
	if cfg.Billing.Mode != "none" {
		t.Errorf("default Billing.Mode = %s, want none", cfg.Billing.Mode)
	}
	if cfg.Reset.SweepInterval != time.Hour {
		t.Errorf("default Reset.SweepInterval = %v, want 1h", cfg.Reset.SweepInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	os.Setenv("TEST_STRIPE_KEY", "sk_test_expanded")
	defer os.Unsetenv("TEST_STRIPE_KEY")

	content := `
billing:
  mode: "stripe"
  secret_key: "${TEST_STRIPE_KEY}"
  webhook_secret: "whsec_xxx"
`

	cfg := writeAndLoad(t, content)

	if cfg.Billing.SecretKey != "sk_test_expanded" {
		t.Errorf("Billing.SecretKey = %s, want sk_test_expanded", cfg.Billing.SecretKey)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	os.Setenv("STAMPLY_SERVER_PORT", "7777")
	os.Setenv("STAMPLY_LOG_LEVEL", "error")
	defer func() {
		os.Unsetenv("STAMPLY_SERVER_PORT")
		os.Unsetenv("STAMPLY_LOG_LEVEL")
	}()

	content := `
server:
  port: 8080
logging:
  level: "info"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error (env override)", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("STAMPLY_SERVER_PORT", "9999")
	os.Setenv("STAMPLY_DATABASE_DSN", "/tmp/env-test.db")
	os.Setenv("STAMPLY_BILLING_MODE", "stripe")
	os.Setenv("STAMPLY_STRIPE_SECRET_KEY", "sk_test_env")
	os.Setenv("STAMPLY_STRIPE_WEBHOOK_SECRET", "whsec_env")
	os.Setenv("STAMPLY_RESET_SWEEP_INTERVAL", "15m")
	os.Setenv("STAMPLY_METRICS_ENABLED", "true")
	defer func() {
		os.Unsetenv("STAMPLY_SERVER_PORT")
		os.Unsetenv("STAMPLY_DATABASE_DSN")
		os.Unsetenv("STAMPLY_BILLING_MODE")
		os.Unsetenv("STAMPLY_STRIPE_SECRET_KEY")
		os.Unsetenv("STAMPLY_STRIPE_WEBHOOK_SECRET")
		os.Unsetenv("STAMPLY_RESET_SWEEP_INTERVAL")
		os.Unsetenv("STAMPLY_METRICS_ENABLED")
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.DSN != "/tmp/env-test.db" {
		t.Errorf("Database.DSN = %s, want /tmp/env-test.db", cfg.Database.DSN)
	}
	if cfg.Billing.SecretKey != "sk_test_env" {
		t.Errorf("Billing.SecretKey = %s, want sk_test_env", cfg.Billing.SecretKey)
	}
	if cfg.Reset.SweepInterval != 15*time.Minute {
		t.Errorf("Reset.SweepInterval = %v, want 15m", cfg.Reset.SweepInterval)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_StripeMissingSecretKey(t *testing.T) {
	content := `
billing:
  mode: "stripe"
  webhook_secret: "whsec_xxx"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for stripe mode without secret_key")
	}
}

func TestLoad_StripeMissingWebhookSecret(t *testing.T) {
	content := `
billing:
  mode: "stripe"
  secret_key: "sk_test_xxx"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for stripe mode without webhook_secret")
	}
}

func TestLoad_InvalidBillingMode(t *testing.T) {
	content := `
billing:
  mode: "paypal"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid billing.mode")
	}
}

func TestLoad_UnknownPlanTier(t *testing.T) {
	content := `
plans:
  - tier: "platinum"
    monthly_price_id: "price_x"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for unknown plan tier")
	}
}

func TestLoad_FreePlanRejected(t *testing.T) {
	content := `
plans:
  - tier: "free"
    monthly_price_id: "price_x"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for free tier plan")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	content := `
logging:
  level: "verbose"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid logging.level")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `
billing:
  mode: "none"
  this is not valid yaml: [
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoadWithFallback_FileExists(t *testing.T) {
	content := `
server:
  port: 6060
`

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}

	if cfg.Server.Port != 6060 {
		t.Errorf("Server.Port = %d, want 6060", cfg.Server.Port)
	}
}

func TestLoadWithFallback_EnvOnly(t *testing.T) {
	os.Setenv("STAMPLY_SERVER_PORT", "5050")
	defer os.Unsetenv("STAMPLY_SERVER_PORT")

	cfg, err := config.LoadWithFallback("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}

	if cfg.Server.Port != 5050 {
		t.Errorf("Server.Port = %d, want 5050", cfg.Server.Port)
	}
}

func TestPriceTable(t *testing.T) {
	content := `
plans:
  - tier: "basic"
    monthly_price_id: "price_basic_m"
    metered_price_id: "price_basic_u"
  - tier: "premium"
    monthly_price_id: "price_premium_m"
`

	cfg := writeAndLoad(t, content)
	prices := cfg.PriceTable()

	if id, ok := prices.Resolve(tier.Basic, billing.BillingMonthly); !ok || id != "price_basic_m" {
		t.Errorf("Resolve(basic, monthly) = %q, %v, want price_basic_m, true", id, ok)
	}
	if id, ok := prices.Resolve(tier.Basic, billing.BillingMetered); !ok || id != "price_basic_u" {
		t.Errorf("Resolve(basic, metered) = %q, %v, want price_basic_u, true", id, ok)
	}
	// No metered price configured for premium
	if _, ok := prices.Resolve(tier.Premium, billing.BillingMetered); ok {
		t.Error("Resolve(premium, metered) found a price, want none")
	}
	if _, ok := prices.Resolve(tier.Enterprise, billing.BillingMonthly); ok {
		t.Error("Resolve(enterprise, monthly) found a price, want none")
	}
}

func TestEnvOverrides_InvalidValues(t *testing.T) {
	os.Setenv("STAMPLY_SERVER_PORT", "not-a-number")
	os.Setenv("STAMPLY_SERVER_READ_TIMEOUT", "not-a-duration")
	defer func() {
		os.Unsetenv("STAMPLY_SERVER_PORT")
		os.Unsetenv("STAMPLY_SERVER_READ_TIMEOUT")
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	// Should use defaults when env vars are invalid
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s (default)", cfg.Server.ReadTimeout)
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
