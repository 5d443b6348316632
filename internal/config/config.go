// Package config reads heartrisk settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration.
type Config struct {
	// ModelPath is the classifier artifact, .bin or .json.
	ModelPath string
	// DBPath overrides the history database location. Empty means the
	// platform data directory.
	DBPath string
	// History enables recording of prediction events.
	History bool

	Server  ServerConfig
	Logging LoggingConfig
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string
	GinMode     string
	CORSOrigins []string
	SessionTTL  time.Duration
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json"
	// File receives TUI logs, since the terminal belongs to the UI.
	File string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelPath: "xgb_model.bin",
		History:   true,
		Server: ServerConfig{
			Addr:        ":8080",
			GinMode:     "release",
			CORSOrigins: []string{"*"},
			SessionTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads an optional .env file from the working directory and then
// builds the Config from the environment.
func Load() (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset values.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.ModelPath = getEnv("HEARTRISK_MODEL", cfg.ModelPath)
	cfg.DBPath = getEnv("HEARTRISK_DB", cfg.DBPath)

	history, err := getEnvAsBool("HEARTRISK_HISTORY", cfg.History)
	if err != nil {
		return Config{}, err
	}
	cfg.History = history

	cfg.Server.Addr = getEnv("HEARTRISK_ADDR", cfg.Server.Addr)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	if o := os.Getenv("HEARTRISK_CORS_ORIGINS"); o != "" {
		cfg.Server.CORSOrigins = splitList(o)
	}
	ttl, err := getEnvAsDuration("HEARTRISK_SESSION_TTL", cfg.Server.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.Server.SessionTTL = ttl

	cfg.Logging.Level = getEnv("HEARTRISK_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("HEARTRISK_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.File = getEnv("HEARTRISK_LOG_FILE", cfg.Logging.File)

	return cfg, nil
}

// Validate checks for settings no component can run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("HEARTRISK_MODEL must not be empty")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %q", c.Logging.Level)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown GIN_MODE: %q", c.Server.GinMode)
	}
	if c.Server.SessionTTL < time.Second {
		return fmt.Errorf("HEARTRISK_SESSION_TTL must be at least 1s, got %s", c.Server.SessionTTL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
