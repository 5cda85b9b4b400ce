package ratelimit

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestPrometheusMetrics_RecordsOutcomes(t *testing.T) {
	metrics := NewPrometheusMetrics()

	metrics.RecordAllowed("host", "a.example.com")
	metrics.RecordAllowed("host", "b.example.com")
	metrics.RecordDenied("host", "a.example.com")

	if got := counterValue(t, metrics.requestsTotal, "host", "allowed"); got != 2 {
		t.Errorf("allowed counter = %v, want 2", got)
	}
	if got := counterValue(t, metrics.requestsTotal, "host", "denied"); got != 1 {
		t.Errorf("denied counter = %v, want 1", got)
	}
}

func TestPrometheusMetrics_GaugesAndEvictions(t *testing.T) {
	metrics := NewPrometheusMetrics()

	metrics.SetActiveKeys("host", 42)
	metrics.SetActiveKeys("host", 17)
	metrics.RecordEviction("host", 3)
	metrics.RecordCheckDuration("host", 2*time.Millisecond)

	if got := gaugeValue(t, metrics.activeKeys, "host"); got != 17 {
		t.Errorf("active keys gauge = %v, want last-set 17", got)
	}
	if got := counterValue(t, metrics.evictions, "host"); got != 3 {
		t.Errorf("evictions counter = %v, want 3", got)
	}
}

func TestPrometheusMetrics_RegistersCleanly(t *testing.T) {
	metrics := NewPrometheusMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	metrics.RecordAllowed("host", "a.example.com")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one registered metric family")
	}
}

func TestNoOpMetrics_IsSafe(t *testing.T) {
	m := NewNoOpMetrics()
	m.RecordAllowed("host", "h")
	m.RecordDenied("host", "h")
	m.RecordCheckDuration("host", time.Millisecond)
	m.SetActiveKeys("host", 1)
	m.RecordEviction("host", 1)
}
