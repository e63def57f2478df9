// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Database
	Backend      string // "sqlite" or "memory"
	SQLiteDBPath string

	// Auth
	JWTSecret     string
	TokenDuration time.Duration

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Load reads the configuration from the environment, falling back to
// development defaults. It never fails; Validate reports problems.
func Load(getenv func(string) string) *Config {
	return &Config{
		Port:          getEnv(getenv, "PORT", "8080"),
		Backend:       getEnv(getenv, "STORE_BACKEND", "sqlite"),
		SQLiteDBPath:  getEnv(getenv, "SQLITE_DB_PATH", "./data/groupledger.db"),
		JWTSecret:     getEnv(getenv, "JWT_SECRET", ""),
		TokenDuration: getEnvDuration(getenv, "TOKEN_DURATION", 24*time.Hour),
		LogLevel:      getEnv(getenv, "LOG_LEVEL", "info"),
		LogFormat:     getEnv(getenv, "LOG_FORMAT", "text"),
	}
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Backend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLITE_DB_PATH cannot be empty with the sqlite backend")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend %q: must be sqlite or memory", c.Backend))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.TokenDuration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token duration %v: must be at least 1 minute", c.TokenDuration))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format %q: must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
