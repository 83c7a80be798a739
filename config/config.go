package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Market data vendor configuration
	Alpaca AlpacaConfig

	// Cache configuration
	Cache CacheConfig

	// Engine configuration
	Engine EngineConfig

	// Backtest configuration
	Backtest BacktestConfig

	// Position sizing configuration
	PositionSizing PositionSizingConfig

	// Alert scheduler configuration
	Alerts AlertConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// CacheConfig holds the bar cache configuration. When RedisAddr is empty
// the engine falls back to an in-process cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BarTTLSeconds int
}

// EngineConfig holds signal scoring configuration
type EngineConfig struct {
	LookbackDays          int
	HealthCacheTTLSeconds int
}

// BacktestConfig holds backtest execution configuration
type BacktestConfig struct {
	LookbackDays     int
	InitialCapital   float64
	ConcurrencyLimit int
	TimeoutSeconds   int
}

// PositionSizingConfig holds position sizing configuration
type PositionSizingConfig struct {
	MaxPositionPercent   float64
	RiskPercent          float64
	MinShares            int64
	MaxShares            int64
	UseConfidenceScaling bool
}

// AlertConfig holds the price alert sweep configuration
type AlertConfig struct {
	Enabled              bool
	CheckIntervalSeconds int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   getEnvString("ALPACA_BASE_URL", "https://paper-api.alpaca.markets"),
		},
		Cache: CacheConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvIntAllowZero("REDIS_DB", 0),
			BarTTLSeconds: getEnvInt("CACHE_BAR_TTL_SECONDS", 900),
		},
		Engine: EngineConfig{
			LookbackDays:          getEnvInt("ENGINE_LOOKBACK_DAYS", 365),
			HealthCacheTTLSeconds: getEnvInt("ENGINE_HEALTH_CACHE_TTL_SECONDS", 30),
		},
		Backtest: BacktestConfig{
			LookbackDays:     getEnvInt("BACKTEST_LOOKBACK_DAYS", 730),
			InitialCapital:   getEnvFloatUnbounded("BACKTEST_INITIAL_CAPITAL", 10_000),
			ConcurrencyLimit: getEnvInt("BACKTEST_CONCURRENCY_LIMIT", 3),
			TimeoutSeconds:   getEnvInt("BACKTEST_TIMEOUT_SECONDS", 120),
		},
		PositionSizing: PositionSizingConfig{
			MaxPositionPercent:   getEnvFloatRange("POSITION_MAX_PERCENT", 0.10, 0.01, 1.0),
			RiskPercent:          getEnvFloatRange("POSITION_RISK_PERCENT", 0.02, 0.001, 0.1),
			MinShares:            int64(getEnvInt("POSITION_MIN_SHARES", 1)),
			MaxShares:            int64(getEnvIntAllowZero("POSITION_MAX_SHARES", 0)),
			UseConfidenceScaling: getEnvBool("POSITION_USE_CONFIDENCE_SCALING", true),
		},
		Alerts: AlertConfig{
			Enabled:              getEnvBool("ALERTS_ENABLED", true),
			CheckIntervalSeconds: getEnvInt("ALERTS_CHECK_INTERVAL_SECONDS", 60),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("BACKTEST_INITIAL_CAPITAL must be positive, got %.2f", c.Backtest.InitialCapital)
	}
	if c.Backtest.ConcurrencyLimit <= 0 {
		return fmt.Errorf("BACKTEST_CONCURRENCY_LIMIT must be positive, got %d", c.Backtest.ConcurrencyLimit)
	}
	if c.Engine.LookbackDays <= 0 {
		return fmt.Errorf("ENGINE_LOOKBACK_DAYS must be positive, got %d", c.Engine.LookbackDays)
	}
	if c.Backtest.LookbackDays <= 0 {
		return fmt.Errorf("BACKTEST_LOOKBACK_DAYS must be positive, got %d", c.Backtest.LookbackDays)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be a valid port, got %d", c.HTTP.Port)
	}
	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasRedis returns true if a Redis cache is configured
func (c *Config) HasRedis() bool {
	return c.Cache.RedisAddr != ""
}

// BarCacheTTL returns the bar cache TTL as a duration
func (c *Config) BarCacheTTL() time.Duration {
	return time.Duration(c.Cache.BarTTLSeconds) * time.Second
}

// AlertInterval returns the alert sweep interval as a duration
func (c *Config) AlertInterval() time.Duration {
	return time.Duration(c.Alerts.CheckIntervalSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntAllowZero(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatRange(key string, defaultValue, minVal, maxVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed >= minVal && parsed <= maxVal {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		Alpaca: AlpacaConfig{
			APIKey:    "",
			APISecret: "",
			BaseURL:   "https://paper-api.alpaca.markets",
		},
		Cache: CacheConfig{
			BarTTLSeconds: 900,
		},
		Engine: EngineConfig{
			LookbackDays:          365,
			HealthCacheTTLSeconds: 30,
		},
		Backtest: BacktestConfig{
			LookbackDays:     730,
			InitialCapital:   10_000,
			ConcurrencyLimit: 3,
			TimeoutSeconds:   120,
		},
		PositionSizing: PositionSizingConfig{
			MaxPositionPercent:   0.10,
			RiskPercent:          0.02,
			MinShares:            1,
			MaxShares:            0,
			UseConfidenceScaling: true,
		},
		Alerts: AlertConfig{
			Enabled:              true,
			CheckIntervalSeconds: 60,
		},
		HTTP: HTTPConfig{
			Port:               8080,
			CORSAllowedOrigins: "*",
		},
	}
}
