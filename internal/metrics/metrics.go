package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus instruments.
type Metrics struct {
	ScansTotal   *prometheus.CounterVec
	ReportsTotal prometheus.Counter
}

// New registers instruments on the given registerer. Tests pass a fresh
// registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campustrack_scans_total",
			Help: "Biometric scans processed, partitioned by outcome.",
		}, []string{"outcome"}),
		ReportsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "campustrack_reports_generated_total",
			Help: "Excel attendance reports generated.",
		}),
	}
}

// RecordScan counts one scan with its outcome.
func (m *Metrics) RecordScan(outcome string) {
	m.ScansTotal.WithLabelValues(outcome).Inc()
}

// RecordReport counts one generated report.
func (m *Metrics) RecordReport() {
	m.ReportsTotal.Inc()
}
