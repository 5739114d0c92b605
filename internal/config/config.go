// Package config loads portal settings from the environment.
// A .env file in the working directory is read first when present; real
// environment variables always win.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds every setting the portal reads at startup.
type Config struct {
	Env  string // "development" or "production"
	Port string

	// BackendURL is the base URL of the visitor API.
	BackendURL     string
	BackendTimeout time.Duration

	SessionStorage string
	SessionSecret  string // seals session values at rest; empty disables sealing
	SessionTimeout time.Duration

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TemplatesDir string // empty serves the embedded templates
	ServiceName  string
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function; tests pass a map lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Env:            get("ENV", "development"),
		Port:           get("PORT", "8080"),
		BackendURL:     strings.TrimRight(get("BACKEND_URL", "http://localhost:3000"), "/"),
		SessionStorage: strings.ToLower(get("SESSION_STORAGE", StorageMemory)),
		SessionSecret:  getenv("SESSION_SECRET"),
		DatabaseURL:    getenv("DATABASE_URL"),
		RedisAddr:      get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD"),
		TemplatesDir:   getenv("TEMPLATES_DIR"),
		ServiceName:    get("OTEL_SERVICE_NAME", "visitor-portal"),
	}

	var err error
	if cfg.SessionTimeout, err = time.ParseDuration(get("SESSION_TIMEOUT", "8h")); err != nil {
		return nil, fmt.Errorf("SESSION_TIMEOUT: %w", err)
	}
	if cfg.BackendTimeout, err = time.ParseDuration(get("BACKEND_TIMEOUT", "0s")); err != nil {
		return nil, fmt.Errorf("BACKEND_TIMEOUT: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL)
	}

	switch c.SessionStorage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when SESSION_STORAGE=postgres")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when SESSION_STORAGE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORAGE must be memory, postgres or redis, got %q", c.SessionStorage)
	}

	if c.IsProduction() && len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET of at least 32 characters is required in production")
	}
	return nil
}

// IsProduction reports whether the portal runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
