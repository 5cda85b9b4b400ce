package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is the outcome of loading one configuration value. The
// worker's fail-open posture means loading never errors: a bad value falls
// back to the default, carries a warning, and sets FallbackApplied so the
// caller can log and count it.
type ConfigLoadResult struct {
	Value           any
	Warnings        []string
	FallbackApplied bool
}

// loadEnv is the shared fail-open loader: read the variable, parse it,
// validate it, and fall back to def with a warning at the first failure. An
// unset or empty variable is the default without a warning.
func loadEnv[T any](envKey string, def T, parse func(string) (T, error), validate func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: def}
	}

	value, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		return ConfigLoadResult{
			Value:           def,
			Warnings:        []string{fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, def)},
			FallbackApplied: true,
		}
	}
	return ConfigLoadResult{Value: value}
}

// LoadEnvString reads a plain string variable with no validation; unset
// means the default. Use LoadEnvWithFallback when the value needs checking.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback reads a string variable and runs it through validator
// (nil skips validation), falling back to defaultValue on failure.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(raw string) (string, error) { return raw, nil }, validator)
}

// LoadEnvDuration reads a Go duration string ("30s", "1h30m"), validates it,
// and falls back to defaultValue on parse or validation failure.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt reads an integer variable, validates it, and falls back to
// defaultValue on parse or validation failure.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(raw string) (int, error) {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return value, nil
	}, validator)
}

// LoadEnvBool reads a boolean variable (strconv syntax: 1/t/true,
// 0/f/false), falling back to defaultValue when the value parses as
// neither.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return loadEnv(envKey, defaultValue, func(raw string) (bool, error) {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return value, nil
	}, nil)
}
