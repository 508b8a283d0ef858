// Package config loads the loader configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all loader configuration.
type Config struct {
	Database DatabaseConfig
	API      APIConfig
	Batch    BatchConfig
	Cache    CacheConfig
	Log      LogConfig

	// PushgatewayURL enables pushing batch metrics at exit when set.
	PushgatewayURL string
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	MaxConns int
}

// APIConfig holds SWAPI client settings.
type APIConfig struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	MaxConcurrency int
}

// BatchConfig selects which people are loaded and how rows are built.
type BatchConfig struct {
	FirstID int
	LastID  int

	// LegacyVehicles builds the vehicles column from the starships
	// collection, matching tables written by the first loader release.
	LegacyVehicles bool
}

// CacheConfig holds response cache settings. An empty RedisURL disables the cache.
type CacheConfig struct {
	RedisURL string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds and validates the
// configuration. An empty envFile defaults to ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "127.0.0.1"),
			Port:     getEnvInt("PG_PORT", 5431),
			Database: getEnv("PG_DB", ""),
			User:     getEnv("PG_USER", ""),
			Password: getEnv("PG_PASSWORD", ""),
			MaxConns: getEnvInt("PG_MAX_CONNS", 4),
		},
		API: APIConfig{
			BaseURL:        getEnv("SWAPI_BASE_URL", "https://swapi.dev/api"),
			UserAgent:      getEnv("SWAPI_USER_AGENT", "swapi-loader/0.1.0"),
			Timeout:        getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
			MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 0),
		},
		Batch: BatchConfig{
			FirstID:        getEnvInt("PEOPLE_FIRST", 1),
			LastID:         getEnvInt("PEOPLE_LAST", 10),
			LegacyVehicles: getEnvBool("LEGACY_VEHICLES", false),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Database == "" {
		return fmt.Errorf("PG_DB is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("PG_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("PG_PASSWORD is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("PG_MAX_CONNS must be >= 1 (got %d)", c.Database.MaxConns)
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return fmt.Errorf("invalid SWAPI_BASE_URL: %w", err)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.API.MaxConcurrency < 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be >= 0 (got %d)", c.API.MaxConcurrency)
	}
	if c.Batch.FirstID < 1 || c.Batch.LastID < c.Batch.FirstID {
		return fmt.Errorf("invalid people range %d..%d", c.Batch.FirstID, c.Batch.LastID)
	}
	return nil
}

// IDs returns the people ids of the configured range in ascending order.
func (c *Config) IDs() []int {
	ids := make([]int, 0, c.Batch.LastID-c.Batch.FirstID+1)
	for id := c.Batch.FirstID; id <= c.Batch.LastID; id++ {
		ids = append(ids, id)
	}
	return ids
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
