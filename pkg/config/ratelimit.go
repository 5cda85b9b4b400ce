package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"newsfeed-engine/pkg/ratelimit"
)

// LoadRateLimitConfig loads outbound throttle configuration from environment
// variables.
//
// This function reads all throttle configuration from environment variables
// and returns a validated RateLimitConfig. If any values are invalid, it logs
// warnings and uses safe defaults instead of failing.
//
// Environment variables:
//   - THROTTLE_ENABLED: Enable/disable outbound throttling (default: true)
//   - THROTTLE_HOST_LIMIT: Per-host request limit per window (default: 20)
//   - THROTTLE_HOST_WINDOW: Per-host window (default: 10s)
//   - THROTTLE_HOST_OVERRIDES: Comma-separated "host=limit/window" entries
//     (example: "api.example.com=5/1m, *.slow-news.com=2/1m")
//   - THROTTLE_MAX_KEYS: Maximum host keys in memory (default: 10000)
//   - THROTTLE_CLEANUP_INTERVAL: Cleanup interval (default: 5m)
//
// Returns:
//   - *ratelimit.RateLimitConfig: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
//
// Example:
//
//	config, err := LoadRateLimitConfig()
//	if err != nil {
//	    return fmt.Errorf("failed to load throttle config: %w", err)
//	}
func LoadRateLimitConfig() (*ratelimit.RateLimitConfig, error) {
	config := &ratelimit.RateLimitConfig{}

	// Feature flag
	config.Enabled = GetEnvBool("THROTTLE_ENABLED", true)

	// Per-host default
	hostLimit := GetEnvInt("THROTTLE_HOST_LIMIT", 20)
	if hostLimit < 0 {
		slog.Warn("invalid THROTTLE_HOST_LIMIT, using default",
			slog.Int("value", hostLimit),
			slog.Int("default", 20))
		hostLimit = 20
	}
	config.DefaultHostLimit = hostLimit

	hostWindow := GetEnvDuration("THROTTLE_HOST_WINDOW", 10*time.Second)
	if err := ValidatePositiveDuration(hostWindow); err != nil {
		slog.Warn("invalid THROTTLE_HOST_WINDOW, using default",
			slog.String("value", hostWindow.String()),
			slog.String("default", "10s"),
			slog.String("error", err.Error()))
		hostWindow = 10 * time.Second
	}
	config.DefaultHostWindow = hostWindow

	// Per-host overrides
	config.HostOverrides = loadHostOverrides()

	// Memory management
	maxKeys := GetEnvInt("THROTTLE_MAX_KEYS", 10000)
	if maxKeys < 0 {
		slog.Warn("invalid THROTTLE_MAX_KEYS, using default",
			slog.Int("value", maxKeys),
			slog.Int("default", 10000))
		maxKeys = 10000
	}
	config.MaxActiveKeys = maxKeys

	cleanupInterval := GetEnvDuration("THROTTLE_CLEANUP_INTERVAL", 5*time.Minute)
	if err := ValidatePositiveDuration(cleanupInterval); err != nil {
		slog.Warn("invalid THROTTLE_CLEANUP_INTERVAL, using default",
			slog.String("value", cleanupInterval.String()),
			slog.String("default", "5m"),
			slog.String("error", err.Error()))
		cleanupInterval = 5 * time.Minute
	}
	config.CleanupInterval = cleanupInterval

	// CleanupMaxAge - not exposed as env var, use 1 hour default
	config.CleanupMaxAge = 1 * time.Hour

	// Validate the entire configuration
	if err := config.Validate(); err != nil {
		slog.Warn("throttle configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}

// loadHostOverrides parses THROTTLE_HOST_OVERRIDES into per-host limits.
//
// Each entry is "host=limit/window"; malformed entries are skipped with a
// warning so a typo in one override never disables the rest.
func loadHostOverrides() []ratelimit.HostRateLimitConfig {
	raw := GetEnvStringList("THROTTLE_HOST_OVERRIDES", nil)
	if len(raw) == 0 {
		return nil
	}

	overrides := make([]ratelimit.HostRateLimitConfig, 0, len(raw))
	for _, entry := range raw {
		host, spec, ok := strings.Cut(entry, "=")
		if !ok {
			slog.Warn("malformed THROTTLE_HOST_OVERRIDES entry, skipping",
				slog.String("entry", entry))
			continue
		}

		limitStr, windowStr, ok := strings.Cut(spec, "/")
		if !ok {
			slog.Warn("malformed THROTTLE_HOST_OVERRIDES entry, skipping",
				slog.String("entry", entry))
			continue
		}

		limit, err := strconv.Atoi(strings.TrimSpace(limitStr))
		if err != nil || limit < 0 {
			slog.Warn("invalid limit in THROTTLE_HOST_OVERRIDES entry, skipping",
				slog.String("entry", entry))
			continue
		}

		window, err := time.ParseDuration(strings.TrimSpace(windowStr))
		if err != nil || window <= 0 {
			slog.Warn("invalid window in THROTTLE_HOST_OVERRIDES entry, skipping",
				slog.String("entry", entry))
			continue
		}

		overrides = append(overrides, ratelimit.HostRateLimitConfig{
			Host:   strings.TrimSpace(host),
			Limit:  limit,
			Window: window,
		})
	}

	return overrides
}
