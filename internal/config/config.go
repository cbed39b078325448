// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr         string        `mapstructure:"HTTP_ADDR"`
	DBDriver         string        `mapstructure:"DB_DRIVER"`
	DBURL            string        `mapstructure:"DB_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	NodeID           int64         `mapstructure:"NODE_ID"`
	GithubToken      string        `mapstructure:"GITHUB_TOKEN"`
	GithubBaseURL    string        `mapstructure:"GITHUB_BASE_URL"`
	GithubTimeout    time.Duration `mapstructure:"GITHUB_TIMEOUT"`
	SyncConcurrency  int           `mapstructure:"SYNC_CONCURRENCY"`
	SearchRateLimit  int           `mapstructure:"SEARCH_RATE_LIMIT"`
	GeneralRateLimit int           `mapstructure:"GENERAL_RATE_LIMIT"`
	RateLimitWindow  time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	OtelEnabled      bool          `mapstructure:"OTEL_ENABLED"`
	ServiceName      string        `mapstructure:"SERVICE_NAME"`
}

var defaults = map[string]any{
	"LOG_LEVEL":          "info",
	"HTTP_ADDR":          ":8080",
	"DB_DRIVER":          DriverPostgres,
	"DB_URL":             "",
	"DB_MAX_CONNS":       10,
	"NODE_ID":            1,
	"GITHUB_TOKEN":       "",
	"GITHUB_BASE_URL":    "",
	"GITHUB_TIMEOUT":     "15s",
	"SYNC_CONCURRENCY":   5,
	"SEARCH_RATE_LIMIT":  100,
	"GENERAL_RATE_LIMIT": 200,
	"RATE_LIMIT_WINDOW":  "15m",
	"REQUEST_TIMEOUT":    "60s",
	"OTEL_ENABLED":       false,
	"SERVICE_NAME":       "github-repo-search",
}

// LoadConfig reads configuration from an optional .env file in dir and from environment variables.
// Environment variables win over the file.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	// Every key needs a default so that Unmarshal sees values that only exist in the environment.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading .env file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges, and fills driver-specific defaults.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is a required configuration field when DB_DRIVER is postgres")
		}
	case DriverSQLite:
		if c.DBURL == "" {
			c.DBURL = "data/repositories.db"
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.GithubTimeout <= 0 {
		return errors.New("GITHUB_TIMEOUT must be positive")
	}
	if c.SyncConcurrency < 1 {
		return errors.New("SYNC_CONCURRENCY must be at least 1")
	}
	if c.SearchRateLimit < 1 || c.GeneralRateLimit < 1 {
		return errors.New("SEARCH_RATE_LIMIT and GENERAL_RATE_LIMIT must be at least 1")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return errors.New("NODE_ID must be between 0 and 1023")
	}
	return nil
}
