// Package config loads Registry Central's configuration. Unlike the
// teacher's YAML-primary pipeline, this service is environment-primary
// per its external interface contract: every setting has an env var,
// and an optional YAML file only seeds non-secret defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for registryd.
type Config struct {
	Env         string        `yaml:"env"` // "production" or "development"
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	TrustProxy  bool          `yaml:"trust_proxy"`
	SearchDebug bool          `yaml:"search_debug"`
	JWTSecret   string        `yaml:"-"` // never sourced from YAML
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Logging     LoggingConfig  `yaml:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	AutoReview  AutoReviewConfig `yaml:"auto_review"`
}

// DatabaseConfig holds Postgres connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // never sourced from YAML
	SSLMode  string `yaml:"sslmode"`
	PoolMax  int32  `yaml:"pool_max"`
}

// RedisConfig holds the optional replay-guard/leader-election backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// TelemetryConfig controls the OpenTelemetry exporter.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// AutoReviewConfig controls the quarantine sweep driver and the
// optional execution-key replay guard.
type AutoReviewConfig struct {
	Interval         time.Duration `yaml:"interval"`
	ExecKeyReplayGuard bool        `yaml:"exec_key_replay_guard"`
}

// IsProduction reports whether quarantine/ban transitions, fraud
// scoring, and https-only registration enforcement are active (§4.1,
// §4.4, §4.5 all gate on this).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional non-secret YAML file, then applies
// environment overrides (which always win), then validates. A missing
// file is not an error — defaults() alone is a usable configuration
// for local development.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- config path from trusted CLI flag
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:         "development",
		Host:        "0.0.0.0",
		Port:        3000,
		TrustProxy:  true,
		SearchDebug: false,
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "registry",
			User:    "registry",
			SSLMode: "disable",
			PoolMax: 10,
		},
		Redis: RedisConfig{
			Addr: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Insecure: true,
		},
		AutoReview: AutoReviewConfig{
			Interval:           24 * time.Hour,
			ExecKeyReplayGuard: false,
		},
	}
}

// applyEnvOverrides implements the environment-variable table of §6.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NODE_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Port = p
		}
	}
	if v := os.Getenv("TRUST_PROXY"); v != "" {
		c.TrustProxy = v == "true"
	}
	if v := os.Getenv("SEARCH_DEBUG"); v != "" {
		c.SearchDebug = v == "true"
	}

	if v := os.Getenv("DATABASE_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Database.Port = p
		}
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("DATABASE_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DATABASE_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("DATABASE_POOL_MAX"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Database.PoolMax = int32(p)
		}
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true"
	}

	if v := os.Getenv("EXEC_KEY_REPLAY_GUARD"); v != "" {
		c.AutoReview.ExecKeyReplayGuard = v == "true"
	}
	if v := os.Getenv("AUTO_REVIEW_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AutoReview.Interval = d
		}
	}
}

// validate checks that the configuration is usable.
func (c *Config) validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.Database.Host == "" || c.Database.Name == "" || c.Database.User == "" {
		return fmt.Errorf("DATABASE_HOST, DATABASE_NAME, and DATABASE_USER are required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if c.Env != "production" && c.Env != "development" {
		return fmt.Errorf("NODE_ENV must be 'production' or 'development', got %q", c.Env)
	}
	if c.AutoReview.ExecKeyReplayGuard && c.Redis.Addr == "" {
		return fmt.Errorf("EXEC_KEY_REPLAY_GUARD requires REDIS_ADDR")
	}
	return nil
}
