package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics mirrors limiter outcomes into Prometheus collectors.
// Collectors are built unregistered; the owning process registers them once
// via MustRegister, so constructing several PrometheusMetrics (tests,
// multiple clients) never collides in the default registry.
type PrometheusMetrics struct {
	requestsTotal *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	activeKeys    *prometheus.GaugeVec
	evictions     *prometheus.CounterVec
}

// NewPrometheusMetrics constructs the collector set.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_requests_total",
			Help: "Rate limit checks by limiter type and outcome.",
		}, []string{"limiter_type", "status"}),

		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimit_check_duration_seconds",
			Help:    "Duration of one rate limit check.",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"limiter_type"}),

		activeKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratelimit_active_keys",
			Help: "Keys currently tracked by the limiter store.",
		}, []string{"limiter_type"}),

		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_evictions_total",
			Help: "Keys evicted from the limiter store at capacity.",
		}, []string{"limiter_type"}),
	}
}

// MustRegister registers every collector with reg. Call once per process.
func (m *PrometheusMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.requestsTotal, m.checkDuration, m.activeKeys, m.evictions)
}

// RecordAllowed counts an admitted request. The key is deliberately not a
// label: per-host label cardinality is unbounded across the open web.
func (m *PrometheusMetrics) RecordAllowed(limiterType, _ string) {
	m.requestsTotal.WithLabelValues(limiterType, "allowed").Inc()
}

// RecordDenied counts a rejected request.
func (m *PrometheusMetrics) RecordDenied(limiterType, _ string) {
	m.requestsTotal.WithLabelValues(limiterType, "denied").Inc()
}

// RecordCheckDuration observes one check's duration.
func (m *PrometheusMetrics) RecordCheckDuration(limiterType string, duration time.Duration) {
	m.checkDuration.WithLabelValues(limiterType).Observe(duration.Seconds())
}

// SetActiveKeys records the store's current key count.
func (m *PrometheusMetrics) SetActiveKeys(limiterType string, count int) {
	m.activeKeys.WithLabelValues(limiterType).Set(float64(count))
}

// RecordEviction counts capacity evictions.
func (m *PrometheusMetrics) RecordEviction(limiterType string, count int) {
	m.evictions.WithLabelValues(limiterType).Add(float64(count))
}

var _ RateLimitMetrics = (*PrometheusMetrics)(nil)
