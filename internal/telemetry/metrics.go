package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the per-source cache hit/miss counts, the three
// protection counts and the unhealthy flag into Prometheus, so those
// numbers are visible through both the control surface and /metrics.
type Metrics struct {
	cacheHits        *prometheus.GaugeVec
	cacheMisses      *prometheus.GaugeVec
	emptyProtection  *prometheus.GaugeVec
	errorProtection  *prometheus.GaugeVec
	shrinkProtection *prometheus.GaugeVec
	unhealthy        *prometheus.GaugeVec
}

// NewMetrics constructs and registers the telemetry mirror's gauge set.
// Gauges (not counters) are used because these mirror a point-in-time
// Snapshot of cumulative in-process counters, re-set on every observation
// rather than incremented.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_cache_hits_total",
			Help: "Cumulative cache hits observed for a source.",
		}, []string{"source_id"}),

		cacheMisses: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_cache_misses_total",
			Help: "Cumulative cache misses observed for a source.",
		}, []string{"source_id"}),

		emptyProtection: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_cache_empty_protection_total",
			Help: "Cumulative empty-result cache-protection events for a source.",
		}, []string{"source_id"}),

		errorProtection: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_cache_error_protection_total",
			Help: "Cumulative error cache-protection events for a source.",
		}, []string{"source_id"}),

		shrinkProtection: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_cache_shrink_protection_total",
			Help: "Cumulative shrink cache-protection events for a source.",
		}, []string{"source_id"}),

		unhealthy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "source_unhealthy",
			Help: "1 if a source has more than the protection-event threshold in its recent ring, 0 otherwise.",
		}, []string{"source_id"}),
	}
}

func (m *Metrics) observe(r SourceReport) {
	m.cacheHits.WithLabelValues(r.SourceID).Set(float64(r.Cache.CacheHit))
	m.cacheMisses.WithLabelValues(r.SourceID).Set(float64(r.Cache.CacheMiss))
	m.emptyProtection.WithLabelValues(r.SourceID).Set(float64(r.Protection.EmptyProtectionCount))
	m.errorProtection.WithLabelValues(r.SourceID).Set(float64(r.Protection.ErrorProtectionCount))
	m.shrinkProtection.WithLabelValues(r.SourceID).Set(float64(r.Protection.ShrinkProtectionCount))

	unhealthy := 0.0
	if r.Unhealthy {
		unhealthy = 1.0
	}
	m.unhealthy.WithLabelValues(r.SourceID).Set(unhealthy)
}
