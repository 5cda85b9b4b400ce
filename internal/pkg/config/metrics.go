package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics is the per-component configuration observability set: when
// the config was last loaded, which fields failed validation, and whether
// the process is currently running on fallback values. Component-prefixed
// names keep one process's worker metrics from colliding with a seeder's.
type ConfigMetrics struct {
	// LoadTimestamp holds the Unix time of the last configuration load.
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts validation failures, labeled by field.
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts applied fallbacks, labeled by field.
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive is 1 while any field runs on its fallback value.
	FallbackActive prometheus.Gauge

	componentName string
}

// NewConfigMetrics builds and registers the metric set for one component
// (e.g. "worker"). Names must be unique per process: promauto panics on a
// duplicate component name.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),

		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),

		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field"}),

		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),

		componentName: componentName,
	}
}

// RecordLoadTimestamp stamps the current time as the last load.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError counts one validation failure for field.
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts one applied fallback for field. The fallbackType
// argument is accepted for call-site readability but not a label: fallback
// kind adds cardinality without operational value.
func (m *ConfigMetrics) RecordFallback(field, fallbackType string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive raises or clears the any-fallback-active flag.
func (m *ConfigMetrics) SetFallbackActive(_ string, active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
