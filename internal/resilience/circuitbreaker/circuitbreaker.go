// Package circuitbreaker wraps sony/gobreaker behind per-dependency
// profiles so upstream failures fail fast instead of cascading.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config tunes one breaker: how much traffic is sampled before the failure
// ratio counts, when the circuit trips, and how recovery is probed.
type Config struct {
	// Name labels the breaker in logs and state-change warnings.
	Name string

	// MaxRequests bounds probe traffic in the half-open state.
	MaxRequests uint32

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration

	// Timeout is how long the circuit stays open before half-opening.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the circuit
	// (0.6 = trip at 60% failures).
	FailureThreshold float64

	// MinRequests is the sample floor below which the ratio is ignored.
	MinRequests uint32
}

// DefaultConfig is the general-purpose profile.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ProxyHealthConfig profiles the proxy pool's health probes: a sweep hits
// one reference origin many times, so the circuit recovers slowly and
// probes sparingly.
func ProxyHealthConfig() Config {
	return Config{
		Name:             "proxy-health",
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      5,
	}
}

// JSONAPIConfig profiles JSON_API source calls.
func JSONAPIConfig() Config {
	return Config{
		Name:             "json-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// FeedFetchConfig profiles RSS feed fetching, which tolerates a higher
// transient-failure rate before tripping.
func FeedFetchConfig() Config {
	return Config{
		Name:             "feed-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          120 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// WebScraperConfig profiles scraping targets. Site-structure changes break
// every request at once, so the circuit stays open a long time before
// re-probing.
func WebScraperConfig() Config {
	return Config{
		Name:             "web-scraper",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          3600 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// CircuitBreaker is a thin wrapper over gobreaker that applies a Config
// and logs state transitions.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &CircuitBreaker{breaker: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// Execute runs fn through the breaker; with the circuit open it returns
// gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }

// Name reports the breaker's configured name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// IsOpen reports whether the circuit is open.
func (cb *CircuitBreaker) IsOpen() bool { return cb.breaker.State() == gobreaker.StateOpen }
