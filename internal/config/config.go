// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/auth"
)

type Config struct {
	// HTTP server
	Port            string
	ShutdownTimeout time.Duration

	// Database
	DBPath string

	// Logging
	LogLevel string

	// Firebase
	FirebaseProjectID          string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string
	FirebaseJWKSURL            string

	// problems found while parsing, reported by Validate
	problems []string
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		DBPath:   getEnv("DB_PATH", "data/spending.db"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		FirebaseProjectID:          getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		FirebaseJWKSURL:            getEnv("FIREBASE_JWKS_URL", auth.FirebaseJWKSURL),
	}

	raw := getEnv("SHUTDOWN_TIMEOUT", "30s")
	d, err := time.ParseDuration(raw)
	if err != nil {
		cfg.problems = append(cfg.problems, fmt.Sprintf("invalid SHUTDOWN_TIMEOUT '%s': %v", raw, err))
		d = 30 * time.Second
	}
	cfg.ShutdownTimeout = d

	return cfg
}

// Validate reports every problem with the configuration at once.
//
// Missing Firebase settings are not an error: the server starts and
// authenticated requests fail until the project is configured.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if c.ShutdownTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	if c.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(c.FirebaseServiceAccountPath); err != nil {
			problems = append(problems, fmt.Sprintf("Firebase service account file is not readable: %s", c.FirebaseServiceAccountPath))
		}
	}

	if c.FirebaseJWKSURL == "" {
		problems = append(problems, "Firebase JWKS URL cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ProjectSource returns the Firebase project settings in the form the auth
// package resolves.
func (c *Config) ProjectSource() auth.ProjectSource {
	return auth.ProjectSource{
		ProjectID:          c.FirebaseProjectID,
		ServiceAccountJSON: c.FirebaseServiceAccountJSON,
		ServiceAccountPath: c.FirebaseServiceAccountPath,
	}
}

// ParseLevel converts a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
