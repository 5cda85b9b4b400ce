package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors proxy pool health into Prometheus, following the same
// promauto-built, labeled-vector shape as the worker's metrics.
type Metrics struct {
	status          *prometheus.GaugeVec
	successRate     *prometheus.GaugeVec
	avgResponseTime *prometheus.GaugeVec
	totalRequests   *prometheus.GaugeVec
}

// NewMetrics constructs and registers the proxy pool's metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		status: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "proxy_status_active",
			Help: "1 if the proxy is ACTIVE, 0 if ERROR.",
		}, []string{"proxy_id", "group"}),

		successRate: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "proxy_success_rate_percent",
			Help: "Rolling success rate for the proxy, 0-100.",
		}, []string{"proxy_id", "group"}),

		avgResponseTime: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "proxy_avg_response_time_seconds",
			Help: "EMA-smoothed response time for successful requests through the proxy.",
		}, []string{"proxy_id", "group"}),

		totalRequests: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "proxy_total_requests",
			Help: "Cumulative requests reported for the proxy.",
		}, []string{"proxy_id", "group"}),
	}
}

// Observe mirrors one Manager.Snapshots() call into the gauge set. Callers
// typically invoke this on a periodic export cycle alongside scheduler and
// telemetry metric observation.
func (m *Metrics) Observe(snapshots []Snapshot) {
	for _, s := range snapshots {
		active := 0.0
		if s.Status == StatusActive {
			active = 1.0
		}
		m.status.WithLabelValues(s.ID, s.Group).Set(active)
		m.successRate.WithLabelValues(s.ID, s.Group).Set(s.SuccessRate)
		m.avgResponseTime.WithLabelValues(s.ID, s.Group).Set(s.AvgResponseTime.Seconds())
		m.totalRequests.WithLabelValues(s.ID, s.Group).Set(float64(s.TotalRequests))
	}
}
