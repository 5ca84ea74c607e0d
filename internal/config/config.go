// Package config loads naptrack's configuration from an optional YAML file
// overlaid by environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the service configuration.
type Config struct {
	Port            string        `yaml:"port"`
	DatabaseURL     string        `yaml:"database_url"`
	AuthTokenKey    string        `yaml:"auth_token_key"` // base64
	CORSOrigins     []string      `yaml:"cors_origins"`
	LogLevel        string        `yaml:"log_level"`
	Env             string        `yaml:"env"`
	StorageBackend  string        `yaml:"storage_backend"`
	DefaultTimezone string        `yaml:"default_timezone"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            "8080",
		DatabaseURL:     "postgres://naptrack:@localhost:5432/naptrack?sslmode=disable",
		CORSOrigins:     []string{"*"},
		LogLevel:        "info",
		Env:             "production",
		StorageBackend:  BackendPostgres,
		DefaultTimezone: "UTC",
		ShutdownTimeout: 30 * time.Second,
		MaxOpenConns:    25,
	}
}

// Load reads path (if non-empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.AuthTokenKey = getEnv("AUTH_TOKEN_KEY", c.AuthTokenKey)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = strings.Split(v, ",")
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Env = getEnv("APP_ENV", c.Env)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.DefaultTimezone = getEnv("DEFAULT_TIMEZONE", c.DefaultTimezone)
	c.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.MaxOpenConns)
}

// Validate rejects unusable combinations.
func (c *Config) Validate() error {
	if c.AuthTokenKey == "" {
		return errors.New("AUTH_TOKEN_KEY is required")
	}
	if _, err := c.TokenKey(); err != nil {
		return err
	}
	switch c.StorageBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StorageBackend)
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}
	return nil
}

// TokenKey decodes the base64 JWT signing key.
func (c *Config) TokenKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.AuthTokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AUTH_TOKEN_KEY: %w", err)
	}
	return key, nil
}

// Location returns the default timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
