package config

import (
	"os"
	"testing"
	"time"
)

// saveEnv saves current environment variables for restoration
func saveEnv(t *testing.T, keys []string) map[string]string {
	t.Helper()
	saved := make(map[string]string)
	for _, key := range keys {
		saved[key] = os.Getenv(key)
	}
	return saved
}

// restoreEnv restores previously saved environment variables
func restoreEnv(t *testing.T, saved map[string]string) {
	t.Helper()
	for key, val := range saved {
		if val == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, val)
		}
	}
}

// clearEnv clears environment variables
func clearEnv(t *testing.T, keys []string) {
	t.Helper()
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

var allEnvKeys = []string{
	"DATABASE_URL",
	"ALPACA_API_KEY",
	"ALPACA_API_SECRET",
	"ALPACA_BASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"CACHE_BAR_TTL_SECONDS",
	"ENGINE_LOOKBACK_DAYS",
	"ENGINE_HEALTH_CACHE_TTL_SECONDS",
	"BACKTEST_LOOKBACK_DAYS",
	"BACKTEST_INITIAL_CAPITAL",
	"BACKTEST_CONCURRENCY_LIMIT",
	"BACKTEST_TIMEOUT_SECONDS",
	"POSITION_MAX_PERCENT",
	"POSITION_RISK_PERCENT",
	"POSITION_MIN_SHARES",
	"POSITION_MAX_SHARES",
	"POSITION_USE_CONFIDENCE_SCALING",
	"ALERTS_ENABLED",
	"ALERTS_CHECK_INTERVAL_SECONDS",
	"HTTP_PORT",
	"CORS_ALLOWED_ORIGINS",
}

func TestLoad_Defaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	// Check defaults
	if cfg.Alpaca.BaseURL != "https://paper-api.alpaca.markets" {
		t.Errorf("expected Alpaca.BaseURL='https://paper-api.alpaca.markets', got %s", cfg.Alpaca.BaseURL)
	}
	if cfg.Engine.LookbackDays != 365 {
		t.Errorf("expected Engine.LookbackDays=365, got %d", cfg.Engine.LookbackDays)
	}
	if cfg.Backtest.LookbackDays != 730 {
		t.Errorf("expected Backtest.LookbackDays=730, got %d", cfg.Backtest.LookbackDays)
	}
	if cfg.Backtest.InitialCapital != 10_000 {
		t.Errorf("expected Backtest.InitialCapital=10000, got %.2f", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.ConcurrencyLimit != 3 {
		t.Errorf("expected Backtest.ConcurrencyLimit=3, got %d", cfg.Backtest.ConcurrencyLimit)
	}
	if cfg.Cache.BarTTLSeconds != 900 {
		t.Errorf("expected Cache.BarTTLSeconds=900, got %d", cfg.Cache.BarTTLSeconds)
	}
	if cfg.PositionSizing.MaxPositionPercent != 0.10 {
		t.Errorf("expected PositionSizing.MaxPositionPercent=0.10, got %.2f", cfg.PositionSizing.MaxPositionPercent)
	}
	if !cfg.Alerts.Enabled {
		t.Error("expected Alerts.Enabled=true by default")
	}
	if cfg.Alerts.CheckIntervalSeconds != 60 {
		t.Errorf("expected Alerts.CheckIntervalSeconds=60, got %d", cfg.Alerts.CheckIntervalSeconds)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP.Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.CORSAllowedOrigins != "*" {
		t.Errorf("expected CORSAllowedOrigins='*', got %s", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("DATABASE_URL", "postgres://localhost/signals")
	os.Setenv("ALPACA_API_KEY", "key")
	os.Setenv("ALPACA_API_SECRET", "secret")
	os.Setenv("REDIS_ADDR", "localhost:6379")
	os.Setenv("BACKTEST_INITIAL_CAPITAL", "25000")
	os.Setenv("ENGINE_LOOKBACK_DAYS", "500")
	os.Setenv("HTTP_PORT", "9090")
	os.Setenv("ALERTS_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.HasDatabase() {
		t.Error("HasDatabase() should be true")
	}
	if !cfg.HasAlpaca() {
		t.Error("HasAlpaca() should be true")
	}
	if !cfg.HasRedis() {
		t.Error("HasRedis() should be true")
	}
	if cfg.Backtest.InitialCapital != 25_000 {
		t.Errorf("InitialCapital = %.2f, want 25000", cfg.Backtest.InitialCapital)
	}
	if cfg.Engine.LookbackDays != 500 {
		t.Errorf("Engine.LookbackDays = %d, want 500", cfg.Engine.LookbackDays)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Alerts.Enabled {
		t.Error("Alerts.Enabled should be false")
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	saved := saveEnv(t, allEnvKeys)
	defer restoreEnv(t, saved)
	clearEnv(t, allEnvKeys)

	os.Setenv("BACKTEST_CONCURRENCY_LIMIT", "not-a-number")
	os.Setenv("POSITION_MAX_PERCENT", "7.5") // out of range
	os.Setenv("ENGINE_LOOKBACK_DAYS", "-10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Backtest.ConcurrencyLimit != 3 {
		t.Errorf("ConcurrencyLimit = %d, want default 3", cfg.Backtest.ConcurrencyLimit)
	}
	if cfg.PositionSizing.MaxPositionPercent != 0.10 {
		t.Errorf("MaxPositionPercent = %.2f, want default 0.10", cfg.PositionSizing.MaxPositionPercent)
	}
	if cfg.Engine.LookbackDays != 365 {
		t.Errorf("Engine.LookbackDays = %d, want default 365", cfg.Engine.LookbackDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero initial capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, true},
		{"negative initial capital", func(c *Config) { c.Backtest.InitialCapital = -100 }, true},
		{"zero concurrency", func(c *Config) { c.Backtest.ConcurrencyLimit = 0 }, true},
		{"zero lookback", func(c *Config) { c.Engine.LookbackDays = 0 }, true},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := NewTestConfig()

	if cfg.BarCacheTTL() != 15*time.Minute {
		t.Errorf("BarCacheTTL() = %v, want 15m", cfg.BarCacheTTL())
	}
	if cfg.AlertInterval() != time.Minute {
		t.Errorf("AlertInterval() = %v, want 1m", cfg.AlertInterval())
	}
}

func TestHasHelpers_Empty(t *testing.T) {
	cfg := NewTestConfig()

	if cfg.HasDatabase() {
		t.Error("HasDatabase() should be false with empty URL")
	}
	if cfg.HasAlpaca() {
		t.Error("HasAlpaca() should be false without credentials")
	}
	if cfg.HasRedis() {
		t.Error("HasRedis() should be false without an address")
	}
}
