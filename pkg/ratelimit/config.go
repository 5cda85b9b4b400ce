package ratelimit

import (
	"fmt"
	"time"
)

// RateLimitConfig contains the configuration for outbound request throttling.
//
// This struct holds all settings needed to configure rate limiters for
// crawl traffic, including the global per-host default, per-host overrides,
// and source-tier-based limits.
type RateLimitConfig struct {
	// Global default rate limit applied per destination host
	DefaultHostLimit int
	// Time window for per-host rate limiting
	DefaultHostWindow time.Duration

	// Per-host rate limit overrides
	HostOverrides []HostRateLimitConfig

	// Source frequency-tier based rate limits
	TierLimits []TierRateLimitConfig

	// Maximum number of active keys to keep in memory
	MaxActiveKeys int

	// How often to run cleanup of expired entries
	CleanupInterval time.Duration

	// Remove entries older than this duration
	CleanupMaxAge time.Duration

	// Feature flag to enable/disable throttling
	Enabled bool
}

// HostRateLimitConfig defines rate limit overrides for specific hosts.
//
// This allows different origins to have different outbound budgets.
// For example, a rate-sensitive news site might get a stricter limit than
// a high-capacity API host.
type HostRateLimitConfig struct {
	// Host is the destination host the override applies to. A leading
	// "*." matches every subdomain ("*.example.com" matches "news.example.com").
	Host string

	// Limit is the maximum requests allowed to this host per window
	Limit int

	// Window is the time window for this host's rate limit
	Window time.Duration
}

// TierRateLimitConfig defines rate limits for source frequency tiers.
//
// Sources in different refresh tiers (high, medium, low) generate very
// different request volumes; tier limits bound each band's total outbound
// budget independently of the per-host limits.
type TierRateLimitConfig struct {
	// Tier identifies the source frequency tier (high, medium, low)
	Tier SourceTier

	// Limit is the maximum requests allowed for this tier
	Limit int

	// Window is the time window for this tier's rate limit
	Window time.Duration
}

// SourceTier represents a source's refresh frequency tier.
type SourceTier string

const (
	// TierHigh covers sources refreshed at most every 15 minutes
	TierHigh SourceTier = "high"

	// TierMedium covers sources refreshed every 15-45 minutes
	TierMedium SourceTier = "medium"

	// TierLow covers sources refreshed less than once per 45 minutes
	TierLow SourceTier = "low"
)

// String returns the string representation of the source tier.
func (t SourceTier) String() string {
	return string(t)
}

// IsValid checks if the source tier is a recognized value.
func (t SourceTier) IsValid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	default:
		return false
	}
}

// Validate checks if the RateLimitConfig is valid.
//
// Returns an error if any configuration values are invalid.
func (c *RateLimitConfig) Validate() error {
	if c.DefaultHostLimit < 0 {
		return fmt.Errorf("DefaultHostLimit must be non-negative, got %d", c.DefaultHostLimit)
	}
	if c.DefaultHostWindow < 0 {
		return fmt.Errorf("DefaultHostWindow must be non-negative, got %s", c.DefaultHostWindow)
	}

	if c.MaxActiveKeys < 0 {
		return fmt.Errorf("MaxActiveKeys must be non-negative, got %d", c.MaxActiveKeys)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("CleanupInterval must be non-negative, got %s", c.CleanupInterval)
	}
	if c.CleanupMaxAge < 0 {
		return fmt.Errorf("CleanupMaxAge must be non-negative, got %s", c.CleanupMaxAge)
	}

	for i, override := range c.HostOverrides {
		if override.Host == "" {
			return fmt.Errorf("HostOverrides[%d].Host cannot be empty", i)
		}
		if override.Limit < 0 {
			return fmt.Errorf("HostOverrides[%d].Limit must be non-negative, got %d", i, override.Limit)
		}
		if override.Window < 0 {
			return fmt.Errorf("HostOverrides[%d].Window must be non-negative, got %s", i, override.Window)
		}
	}

	for i, tierLimit := range c.TierLimits {
		if !tierLimit.Tier.IsValid() {
			return fmt.Errorf("TierLimits[%d].Tier has invalid value %q", i, tierLimit.Tier)
		}
		if tierLimit.Limit < 0 {
			return fmt.Errorf("TierLimits[%d].Limit must be non-negative, got %d", i, tierLimit.Limit)
		}
		if tierLimit.Window < 0 {
			return fmt.Errorf("TierLimits[%d].Window must be non-negative, got %s", i, tierLimit.Window)
		}
	}

	return nil
}

// ApplyDefaults sets safe default values for any missing or zero configuration values.
//
// This ensures the throttle can function even if the configuration is incomplete.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.DefaultHostLimit == 0 {
		c.DefaultHostLimit = 20 // 20 requests per 10 seconds to one host
	}
	if c.DefaultHostWindow == 0 {
		c.DefaultHostWindow = 10 * time.Second
	}

	if c.MaxActiveKeys == 0 {
		c.MaxActiveKeys = 10000 // Maximum 10,000 unique hosts in memory
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.CleanupMaxAge == 0 {
		c.CleanupMaxAge = 1 * time.Hour
	}

	if !c.Enabled {
		c.Enabled = true
	}
}

// GetTierLimit returns the rate limit configuration for a source tier.
//
// If no tier-specific limit is configured, it returns the default host limit.
//
// Parameters:
//   - tier: The source frequency tier to look up
//
// Returns the limit and window for the tier.
func (c *RateLimitConfig) GetTierLimit(tier SourceTier) (limit int, window time.Duration) {
	for _, tierLimit := range c.TierLimits {
		if tierLimit.Tier == tier {
			return tierLimit.Limit, tierLimit.Window
		}
	}

	return c.DefaultHostLimit, c.DefaultHostWindow
}

// GetHostLimit returns the rate limit configuration for a destination host.
//
// Override matching is exact, or by "*." wildcard prefix covering every
// subdomain. If no override matches, it returns the default host limit.
//
// Parameters:
//   - host: The destination host to look up
//
// Returns the limit and window for the host.
func (c *RateLimitConfig) GetHostLimit(host string) (limit int, window time.Duration) {
	for _, override := range c.HostOverrides {
		if override.Host == host {
			return override.Limit, override.Window
		}
		if len(override.Host) > 2 && override.Host[:2] == "*." && hasDomainSuffix(host, override.Host[2:]) {
			return override.Limit, override.Window
		}
	}

	return c.DefaultHostLimit, c.DefaultHostWindow
}

// hasDomainSuffix reports whether host equals domain or is a subdomain of it.
func hasDomainSuffix(host, domain string) bool {
	if host == domain {
		return true
	}
	n := len(host) - len(domain)
	return n > 0 && host[n-1] == '.' && host[n:] == domain
}

// DefaultConfig returns a RateLimitConfig with safe default values.
//
// This is useful for testing and as a starting point for configuration.
func DefaultConfig() *RateLimitConfig {
	config := &RateLimitConfig{}
	config.ApplyDefaults()
	return config
}
