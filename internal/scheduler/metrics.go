package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors fetch outcomes into Prometheus: counters/histograms built
// once via promauto and labeled by source_id.
type Metrics struct {
	FetchesTotal     *prometheus.CounterVec
	FetchItemsTotal  *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	AdaptiveInterval *prometheus.GaugeVec
	FrequencyScore   *prometheus.GaugeVec
}

// NewMetrics constructs and registers the scheduler's metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_fetches_total",
			Help: "Total per-source fetch attempts by outcome (success/empty).",
		}, []string{"source_id", "outcome"}),

		FetchItemsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_fetch_items_total",
			Help: "Total items returned by source across all fetches, split new/updated.",
		}, []string{"source_id", "kind"}),

		FetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_fetch_duration_seconds",
			Help:    "Per-source fetch duration.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"source_id"}),

		AdaptiveInterval: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_adaptive_interval_seconds",
			Help: "Current adaptive fetch interval per source.",
		}, []string{"source_id"}),

		FrequencyScore: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scheduler_frequency_score",
			Help: "Current EMA frequency score per source.",
		}, []string{"source_id"}),
	}
}

// ObserveFetch records one completed Fetch result.
func (m *Metrics) ObserveFetch(sourceID string, result FetchResult) {
	outcome := "success"
	if !result.Success {
		outcome = "empty"
	}
	m.FetchesTotal.WithLabelValues(sourceID, outcome).Inc()
	m.FetchItemsTotal.WithLabelValues(sourceID, "new").Add(float64(result.NewCount))
	m.FetchItemsTotal.WithLabelValues(sourceID, "updated").Add(float64(result.UpdatedCount))
	m.FetchDuration.WithLabelValues(sourceID).Observe(result.Duration.Seconds())
}

// ObserveState records the current adaptive-scheduling gauges for one
// source. Callers typically invoke this from Scheduler.Snapshots on a
// periodic export cycle.
func (m *Metrics) ObserveState(snap StateSnapshot) {
	m.AdaptiveInterval.WithLabelValues(snap.SourceID).Set(snap.AdaptiveInterval.Seconds())
	m.FrequencyScore.WithLabelValues(snap.SourceID).Set(snap.FrequencyScore)
}
