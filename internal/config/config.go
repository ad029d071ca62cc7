// Package config provides environment-aware configuration management for
// the fleet analytics core.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	slruntime "github.com/fleetops/fleet-analytics-core/internal/runtime"
	"github.com/joho/godotenv"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// DBConfig holds connection parameters for a single SQL data source.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the connection string in the libpq keyword/value form
// consumed by lib/pq.
func (d DBConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslmode)
}

// Config holds all application configuration.
type Config struct {
	Env Environment

	// Upstream telematics source (sensors / units_map tables). Named
	// WIALON_DB_* per the minimum environment variable set this system is
	// deployed against.
	TelematicsDB DBConfig

	// Operational store: fuel_metrics, refuel_events, cc_* history and
	// configuration-override tables.
	OperationalDB DBConfig

	// Optional fast-path key/value store for trend and estimator state.
	RedisURL     string
	RedisEnabled bool

	// Config override file, watched for changes.
	ConfigFilePath string

	// HTTP
	HTTPPort int

	// Logging
	LogLevel  string
	LogFormat string

	// Polling / cycle cadence
	TelemetryPollInterval time.Duration
	StateFlushInterval    time.Duration
	TrendSnapshotInterval time.Duration
	// Optional cron expression overriding TrendSnapshotInterval's plain
	// ticker cadence for the trend recorder (e.g. "0 * * * *").
	TrendSnapshotCron     string
	MaxSnapshotAgeSeconds int

	// Metrics
	MetricsEnabled bool
	MetricsPort    int

	// HTTP middleware
	CORSOrigins []string

	// Features
	TestMode bool
}

// Load builds configuration from baked defaults, environment variables (and
// an optional .env file), in that order. DB-sourced command_center_config
// overrides are not applied to Config, here or elsewhere; the store only
// exposes the active rows through ListActiveOverrides.
func Load() (*Config, error) {
	envStr := os.Getenv("APP_ENV")
	if envStr == "" {
		envStr = string(slruntime.Development)
	}

	parsedEnv, ok := slruntime.ParseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid APP_ENV: %s (must be development, testing, or production)", envStr)
	}
	env := Environment(parsedEnv)

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("warning: could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.TelematicsDB = DBConfig{
		Host:     getEnv("WIALON_DB_HOST", "localhost"),
		Port:     getIntEnv("WIALON_DB_PORT", 5432),
		User:     getEnv("WIALON_DB_USER", ""),
		Password: getEnv("WIALON_DB_PASS", ""),
		Name:     getEnv("WIALON_DB_NAME", ""),
		SSLMode:  getEnv("WIALON_DB_SSLMODE", "disable"),
	}

	c.OperationalDB = DBConfig{
		Host:     getEnv("OPSTORE_DB_HOST", c.TelematicsDB.Host),
		Port:     getIntEnv("OPSTORE_DB_PORT", 5432),
		User:     getEnv("OPSTORE_DB_USER", c.TelematicsDB.User),
		Password: getEnv("OPSTORE_DB_PASS", c.TelematicsDB.Password),
		Name:     getEnv("OPSTORE_DB_NAME", "fleet_analytics"),
		SSLMode:  getEnv("OPSTORE_DB_SSLMODE", "disable"),
	}

	c.RedisURL = getEnv("REDIS_URL", "")
	c.RedisEnabled = c.RedisURL != ""

	c.ConfigFilePath = getEnv("CONFIG_FILE", "config/fleet-analytics.yaml")

	c.HTTPPort = getIntEnv("HTTP_PORT", 8090)

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	pollInterval := getEnv("TELEMETRY_POLL_INTERVAL", "30s")
	d, err := time.ParseDuration(pollInterval)
	if err != nil {
		return fmt.Errorf("invalid TELEMETRY_POLL_INTERVAL: %w", err)
	}
	c.TelemetryPollInterval = d

	flushInterval := getEnv("STATE_FLUSH_INTERVAL", "5m")
	d, err = time.ParseDuration(flushInterval)
	if err != nil {
		return fmt.Errorf("invalid STATE_FLUSH_INTERVAL: %w", err)
	}
	c.StateFlushInterval = d

	trendInterval := getEnv("TREND_SNAPSHOT_INTERVAL", "1h")
	d, err = time.ParseDuration(trendInterval)
	if err != nil {
		return fmt.Errorf("invalid TREND_SNAPSHOT_INTERVAL: %w", err)
	}
	c.TrendSnapshotInterval = d

	c.TrendSnapshotCron = getEnv("TREND_SNAPSHOT_CRON", "")

	c.MaxSnapshotAgeSeconds = getIntEnv("MAX_SNAPSHOT_AGE_SECONDS", 3600)

	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", true)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)

	c.CORSOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	c.TestMode = getBoolEnv("TEST_MODE", false)

	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsTesting() bool     { return c.Env == Testing }
func (c *Config) IsProduction() bool  { return c.Env == Production }

// Validate checks invariants that must hold regardless of environment.
func (c *Config) Validate() error {
	if c.TelematicsDB.Name == "" {
		return fmt.Errorf("WIALON_DB_NAME is required")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid METRICS_PORT: %d", c.MetricsPort)
	}
	if c.MaxSnapshotAgeSeconds <= 0 {
		return fmt.Errorf("MAX_SNAPSHOT_AGE_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
