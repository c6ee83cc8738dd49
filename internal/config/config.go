// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Live backends accepted by LIVE_BACKEND.
const (
	LiveMemory   = "memory"
	LivePostgres = "postgres"
	LiveRedis    = "redis"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// LiveBackend selects how change signals reach other server instances:
	// memory (single instance), postgres (LISTEN/NOTIFY) or redis (Pub/Sub).
	LiveBackend string

	// RedisURL is required when LiveBackend is redis.
	RedisURL string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("LIVE_BACKEND", LiveMemory)

	cfg := Config{
		Port:         v.GetString("PORT"),
		DatabaseURL:  v.GetString("DATABASE_URL"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		CORSOrigins:  splitCSV(v.GetString("CORS_ORIGINS")),
		MaxBodyBytes: v.GetInt64("MAX_BODY_BYTES"),
		LiveBackend:  strings.ToLower(v.GetString("LIVE_BACKEND")),
		RedisURL:     v.GetString("REDIS_URL"),
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.LiveBackend == LiveRedis && cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	switch cfg.LiveBackend {
	case LiveMemory, LivePostgres, LiveRedis:
	default:
		return Config{}, fmt.Errorf("LIVE_BACKEND must be one of memory, postgres, redis (got %q)", cfg.LiveBackend)
	}
	if cfg.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be a positive integer")
	}

	return cfg, nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
