// Package slo tracks the engine's service-level objectives as Prometheus
// gauges. The worker derives the availability and error-rate ratios from
// its own telemetry rollup on the metrics export cycle; the fetch-latency
// percentiles are computed by the scrape side (histogram_quantile over
// feed_crawl_duration_seconds) and pushed back in by whatever runs that
// query.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the fetch pipeline.
const (
	// AvailabilitySLO is the target share of sources serving fresh
	// content (not flagged unhealthy by cache-protection telemetry).
	AvailabilitySLO = 99.0

	// FetchLatencyP95SLO is the target p95 for one source fetch, in
	// seconds.
	FetchLatencyP95SLO = 10.0

	// FetchLatencyP99SLO is the target p99 for one source fetch, in
	// seconds.
	FetchLatencyP99SLO = 30.0

	// ErrorRateSLO is the maximum acceptable share of fetches resolved by
	// error protection rather than fresh content.
	ErrorRateSLO = 0.01
)

var (
	// SLOAvailability is the current healthy-source ratio (0-1).
	SLOAvailability = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_availability_ratio",
		Help: "Share of sources currently serving fresh content (0-1), target: 0.99",
	})

	// SLOFetchLatencyP95 is the current p95 source-fetch latency.
	SLOFetchLatencyP95 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_fetch_latency_p95_seconds",
		Help: "Current p95 source fetch latency in seconds, target: 10",
	})

	// SLOFetchLatencyP99 is the current p99 source-fetch latency.
	SLOFetchLatencyP99 = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_fetch_latency_p99_seconds",
		Help: "Current p99 source fetch latency in seconds, target: 30",
	})

	// SLOErrorRate is the current error-protected fetch ratio (0-1).
	SLOErrorRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slo_error_rate_ratio",
		Help: "Share of fetches resolved by error protection (0-1), target: 0.01",
	})
)

// UpdateAvailability records the healthy-source ratio, clamped to [0, 1].
func UpdateAvailability(ratio float64) {
	SLOAvailability.Set(clampRatio(ratio))
}

// UpdateLatencyP95 records the p95 fetch latency in seconds.
func UpdateLatencyP95(seconds float64) {
	SLOFetchLatencyP95.Set(seconds)
}

// UpdateLatencyP99 records the p99 fetch latency in seconds.
func UpdateLatencyP99(seconds float64) {
	SLOFetchLatencyP99.Set(seconds)
}

// UpdateErrorRate records the error-protected fetch ratio, clamped to
// [0, 1].
func UpdateErrorRate(ratio float64) {
	SLOErrorRate.Set(clampRatio(ratio))
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
