package worker

import (
	"newsfeed-engine/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the engine process as a
// whole. It embeds the standard ConfigMetrics for configuration monitoring
// and adds engine-level metrics that don't belong to any one component
// (scheduler, proxy pool, telemetry already have their own metric sets).
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Engine-level metrics:
//   - worker_orchestrator_runs_total: Total tier runs by status (success/failure)
//   - worker_orchestrator_run_duration_seconds: Duration histogram of tier runs
//   - worker_sources_fetched_total: Total sources fetched per tier run
//   - worker_last_success_timestamp: Unix timestamp of last successful tier run
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// OrchestratorRunsTotal counts tier runs by outcome.
	OrchestratorRunsTotal *prometheus.CounterVec

	// OrchestratorRunDurationSeconds measures tier run duration.
	OrchestratorRunDurationSeconds prometheus.Histogram

	// SourcesFetchedTotal counts sources fetched across all tier runs.
	SourcesFetchedTotal prometheus.Counter

	// LastSuccessTimestamp records the Unix timestamp of the last
	// successful tier run.
	LastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized. Metrics are created but registration happens automatically
// via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		OrchestratorRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_orchestrator_runs_total",
			Help: "Total number of orchestrator tier runs by status (success/failure)",
		}, []string{"status"}),

		OrchestratorRunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_orchestrator_run_duration_seconds",
			Help:    "Duration of one orchestrator tier run in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		SourcesFetchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_sources_fetched_total",
			Help: "Total number of sources fetched across all orchestrator runs",
		}),

		LastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_last_success_timestamp",
			Help: "Unix timestamp of the last successful orchestrator run",
		}),
	}
}

// MustRegister is a no-op retained for API compatibility: metrics are
// auto-registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
}

// RecordRun increments the run counter for the given status ("success" or
// "failure").
func (m *WorkerMetrics) RecordRun(status string) {
	m.OrchestratorRunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of one tier run, in seconds.
func (m *WorkerMetrics) RecordRunDuration(seconds float64) {
	m.OrchestratorRunDurationSeconds.Observe(seconds)
}

// RecordSourcesFetched adds count to the cumulative sources-fetched total.
func (m *WorkerMetrics) RecordSourcesFetched(count int) {
	m.SourcesFetchedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}
