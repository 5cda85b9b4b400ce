// Package config holds the environment-variable helpers shared by every
// binary in this module: plain getters with defaults here, plus the
// outbound-throttle loader in ratelimit.go. None of these log-and-default
// helpers ever fail; a bad value is warned about and replaced with the
// default so the process still starts.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the variable's value, or defaultValue when unset or
// empty. No validation, no logging.
func GetEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses the variable as an integer; an unparseable value logs a
// warning and yields defaultValue.
func GetEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvBool parses the variable with Go bool syntax (1/t/true,
// 0/f/false); anything else logs a warning and yields defaultValue.
func GetEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Bool("default", defaultValue))
		return defaultValue
	}
	return value
}

// GetEnvDuration parses the variable with time.ParseDuration ("30s",
// "1h30m"); an unparseable value logs a warning and yields defaultValue.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.String("default", defaultValue.String()))
		return defaultValue
	}
	return value
}

// GetEnvStringList splits the variable on commas, trimming whitespace and
// dropping empty entries. An unset variable (or one that trims down to
// nothing) yields defaultValue.
//
//	THROTTLE_HOST_OVERRIDES="api.example.com=5/1m, *.slow-news.com=2/1m"
//	→ ["api.example.com=5/1m", "*.slow-news.com=2/1m"]
func GetEnvStringList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
