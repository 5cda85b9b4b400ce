package ratelimit

import "time"

// NoOpMetrics discards every observation. It is the default for callers
// that have not wired a metrics backend, and for tests.
type NoOpMetrics struct{}

// NewNoOpMetrics constructs the no-op recorder.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (*NoOpMetrics) RecordAllowed(string, string)              {}
func (*NoOpMetrics) RecordDenied(string, string)               {}
func (*NoOpMetrics) RecordCheckDuration(string, time.Duration) {}
func (*NoOpMetrics) SetActiveKeys(string, int)                 {}
func (*NoOpMetrics) RecordEviction(string, int)                {}

var _ RateLimitMetrics = (*NoOpMetrics)(nil)
