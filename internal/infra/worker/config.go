package worker

import (
	"fmt"
	"log/slog"
	"time"

	"newsfeed-engine/internal/pkg/config"
)

// WorkerConfig holds the process-level configuration for the engine binary:
// where to load the source table and proxy table from, the scheduler's
// polling knobs, the timezone orchestrator schedules run in, and the health
// check port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the process can
// start even with invalid or missing configuration (fail-open).
type WorkerConfig struct {
	// SourceTableFile is the path to the YAML file describing every source
	// to fetch. Empty disables loading (registry.Build then has nothing to
	// build from, which is treated as a startup error, not a fallback).
	// Default: "config/sources.yaml"
	SourceTableFile string

	// ProxyTableFile is the path to the YAML file describing the proxy pool.
	// Empty means no static proxy pool is pre-seeded (the Manager still
	// accepts runtime Add calls); this is a supported, fail-open state.
	// Default: "config/proxies.yaml"
	ProxyTableFile string

	// Timezone is the IANA timezone name the orchestrator's tier schedules
	// run in.
	// Example: "Asia/Tokyo", "UTC", "America/New_York"
	// Default: "UTC"
	Timezone string

	// SchedulerConcurrency bounds how many sources the scheduler fetches
	// concurrently within one scheduler Tick.
	// Range: 1-100
	// Default: 10
	SchedulerConcurrency int

	// SchedulerCheckInterval is how often the scheduler re-evaluates which
	// sources are due, independent of the orchestrator's cron ticks.
	// Must be positive (> 0)
	// Default: 1 minute
	SchedulerCheckInterval time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		SourceTableFile:        "config/sources.yaml",
		ProxyTableFile:         "config/proxies.yaml",
		Timezone:               "UTC",
		SchedulerConcurrency:   10,
		SchedulerCheckInterval: time.Minute,
		HealthPort:             9091,
	}
}

// Validate checks if the configuration values are valid, collecting every
// violation rather than stopping at the first.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if c.SourceTableFile == "" {
		errors = append(errors, fmt.Errorf("source table file: must not be empty"))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.SchedulerConcurrency, 1, 100); err != nil {
		errors = append(errors, fmt.Errorf("scheduler concurrency: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.SchedulerCheckInterval); err != nil {
		errors = append(errors, fmt.Errorf("scheduler check interval: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - SOURCE_TABLE_FILE: path to sources.yaml (default: "config/sources.yaml")
//   - PROXY_TABLE_FILE: path to proxies.yaml (default: "config/proxies.yaml")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - SCHEDULER_CONCURRENCY: integer 1-100 (default: 10)
//   - SCHEDULER_CHECK_INTERVAL: duration string, e.g. "1m" (default: 1 minute)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvWithFallback("SOURCE_TABLE_FILE", cfg.SourceTableFile, func(v string) error {
		if v == "" {
			return fmt.Errorf("must not be empty")
		}
		return nil
	})
	cfg.SourceTableFile = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("source_table_file")
		metrics.RecordFallback("source_table_file", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "SourceTableFile"), slog.String("warning", warning))
		}
	}

	result = config.LoadEnvWithFallback("PROXY_TABLE_FILE", cfg.ProxyTableFile, func(string) error { return nil })
	cfg.ProxyTableFile = result.Value.(string)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"), slog.String("warning", warning))
		}
	}

	intResult := config.LoadEnvInt("SCHEDULER_CONCURRENCY", cfg.SchedulerConcurrency, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	cfg.SchedulerConcurrency = intResult.Value.(int)
	if intResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("scheduler_concurrency")
		metrics.RecordFallback("scheduler_concurrency", "default")
		for _, warning := range intResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "SchedulerConcurrency"), slog.String("warning", warning))
		}
	}

	durResult := config.LoadEnvDuration("SCHEDULER_CHECK_INTERVAL", cfg.SchedulerCheckInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 1*time.Hour)
	})
	cfg.SchedulerCheckInterval = durResult.Value.(time.Duration)
	if durResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("scheduler_check_interval")
		metrics.RecordFallback("scheduler_check_interval", "default")
		for _, warning := range durResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "SchedulerCheckInterval"), slog.String("warning", warning))
		}
	}

	intResult = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = intResult.Value.(int)
	if intResult.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range intResult.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"), slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
