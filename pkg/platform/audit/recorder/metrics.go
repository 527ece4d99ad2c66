package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit recorder.
type Metrics struct {
	Written         *prometheus.CounterVec
	WriteFailures   *prometheus.CounterVec
	Lost            prometheus.Counter
	RetryPending    prometheus.Gauge
	PersistDuration prometheus.Histogram
}

// NewMetrics registers recorder metrics on reg (the default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Written: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_audit_entries_written_total",
			Help: "Audit entries persisted, by write mode",
		}, []string{"mode"}), // mode: "sync", "async", "retry"
		WriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_audit_write_failures_total",
			Help: "Audit write failures escalated to monitoring, by write mode",
		}, []string{"mode"}),
		Lost: factory.NewCounter(prometheus.CounterOpts{
			Name: "archgate_audit_entries_lost_total",
			Help: "Audit entries evicted from the retry buffer or abandoned on shutdown",
		}),
		RetryPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "archgate_audit_retry_pending",
			Help: "Audit entries waiting in the retry buffer",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "archgate_audit_persist_duration_seconds",
			Help:    "Duration of audit store writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) incWritten(mode string) {
	if m != nil {
		m.Written.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) incFailure(mode string) {
	if m != nil {
		m.WriteFailures.WithLabelValues(mode).Inc()
	}
}

func (m *Metrics) incLost() {
	if m != nil {
		m.Lost.Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.RetryPending.Set(float64(n))
	}
}

func (m *Metrics) observePersist(seconds float64) {
	if m != nil {
		m.PersistDuration.Observe(seconds)
	}
}
