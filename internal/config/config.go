package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort       int
	JWTSecret        string
	TokenTTL         time.Duration
	DatabasePath     string // SQLite DSN for the activity log; ":memory:" keeps it in process
	CatalogPath      string // Optional JSON catalog; empty uses the embedded seed
	SimulatedLatency bool
	AllowedOrigins   []string
	SessionSweepSpec string // cron spec for purging expired sessions
	StatsSpec        string // cron spec for broadcasting catalog stats
	LogLevel         string
	Production       bool
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	ttlStr := getEnv("TOKEN_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q: %w", ttlStr, err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q: must be positive", ttlStr)
	}

	latencyStr := getEnv("SIMULATED_LATENCY", "false")
	latency, err := strconv.ParseBool(latencyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATED_LATENCY %q: %w", latencyStr, err)
	}

	return &Config{
		ServerPort:       port,
		JWTSecret:        getEnv("JWT_SECRET", "access"),
		TokenTTL:         ttl,
		DatabasePath:     getEnv("DATABASE_PATH", ":memory:"),
		CatalogPath:      getEnv("CATALOG_PATH", ""),
		SimulatedLatency: latency,
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		SessionSweepSpec: getEnv("SESSION_SWEEP_SCHEDULE", "@every 5m"),
		StatsSpec:        getEnv("STATS_SCHEDULE", "@every 1m"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Production:       getEnv("APP_ENV", "development") == "production",
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
