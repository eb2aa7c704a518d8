// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds settings resolved from the environment.
type Config struct {
	Endpoint   string  // override for the Cloud Identity base URL (empty = default)
	CustomerID string  // default customer ID for group commands
	Output     string  // default output format
	LogLevel   string  // log level: debug, info, warn, error (default "warn")
	QPS        float64 // client-side request throttle, 0 = unlimited
	NoColor    bool    // disable colored log output

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// LoadFromEnv loads configuration from CIGROUPS_* environment variables.
// Every variable is optional. CIGROUPS_HOME is not among them: the caller
// needs it to locate .env, so a .env file cannot set it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Endpoint:   os.Getenv("CIGROUPS_ENDPOINT"),
		CustomerID: os.Getenv("CIGROUPS_CUSTOMER_ID"),
		Output:     os.Getenv("CIGROUPS_OUTPUT"),
		LogLevel:   os.Getenv("CIGROUPS_LOG_LEVEL"),
		NoColor:    parseBoolEnvDefault("CIGROUPS_NO_COLOR", false),
	}

	if v := os.Getenv("CIGROUPS_QPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring CIGROUPS_QPS=%q: not a number", v))
		case f < 0:
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring CIGROUPS_QPS=%q: must not be negative", v))
		default:
			cfg.QPS = f
		}
	}

	if cfg.Output != "" && cfg.Output != "table" && cfg.Output != "json" {
		return nil, fmt.Errorf("unsupported CIGROUPS_OUTPUT %q: use 'table' or 'json'", cfg.Output)
	}

	// Defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}

	return cfg, nil
}

// DefaultHome returns the directory containing the running executable,
// falling back to the working directory when it cannot be determined.
func DefaultHome() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
