// Package config loads and validates application configuration from
// environment variables. A local .env file, when present, is loaded first
// so development machines do not have to export everything by hand.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server and the offline
// engine CLI. Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required by the server.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// CachePath is where the offline engine keeps its local database.
	// Defaults to ".roamline/cache.db" under the user's home directory.
	CachePath string

	// APIBaseURL is the remote backend the offline engine syncs against.
	// Defaults to "http://localhost:8080".
	APIBaseURL string
}

// Load reads configuration from the environment (and an optional .env file)
// for the API server. Returns an error listing any required variables that
// are not set.
func Load() (Config, error) {
	cfg := loadCommon()

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// LoadClient reads configuration for the offline engine CLI, which has no
// required variables — everything falls back to a default.
func LoadClient() Config {
	return loadCommon()
}

func loadCommon() Config {
	// Missing .env is fine; explicit environment always wins because
	// godotenv does not override variables that are already set.
	_ = godotenv.Load()

	return Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		CachePath:   getEnv("CACHE_PATH", defaultCachePath()),
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
	}
}

// defaultCachePath places the cache database under the user's home
// directory, falling back to the working directory when home is unknown.
func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roamline/cache.db"
	}
	return home + "/.roamline/cache.db"
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
