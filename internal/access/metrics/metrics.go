package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for access evaluation.
type Metrics struct {
	// Source read latencies by restriction kind
	SourceLatency *prometheus.HistogramVec

	// Source read failures by restriction kind
	SourceUnavailable *prometheus.CounterVec

	// Decisions by level and reason
	Decisions *prometheus.CounterVec

	// Restriction data read in its most restrictive interpretation
	IntegrityFaults *prometheus.CounterVec

	// Decision cache lookups by result
	CacheLookups *prometheus.CounterVec

	// Clearance resolutions that fell back to least privilege
	ClearanceDegraded prometheus.Counter

	// Overall check latency including audit
	CheckLatency prometheus.Histogram
}

// New registers access metrics on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SourceLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archgate_access_source_duration_seconds",
			Help:    "Duration of restriction source reads by source",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}), // source: "classification", "embargo", "donor", "redaction"

		SourceUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_access_source_unavailable_total",
			Help: "Restriction source reads that failed or timed out",
		}, []string{"source"}),

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_access_decisions_total",
			Help: "Access decisions by level and reason",
		}, []string{"level", "reason"}),

		IntegrityFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_access_integrity_faults_total",
			Help: "Malformed or conflicting restriction records by source",
		}, []string{"source"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archgate_access_cache_lookups_total",
			Help: "Decision cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error", "bypass"

		ClearanceDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "archgate_access_clearance_degraded_total",
			Help: "Clearance resolutions that failed and fell back to least privilege",
		}),

		CheckLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "archgate_access_check_duration_seconds",
			Help:    "Duration of a full access check including audit",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveSourceLatency records the duration of one source read.
func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

func (m *Metrics) IncSourceUnavailable(source string) {
	if m != nil {
		m.SourceUnavailable.WithLabelValues(source).Inc()
	}
}

// IncDecision records a decision outcome.
func (m *Metrics) IncDecision(level, reason string) {
	if m != nil {
		if reason == "" {
			reason = "none"
		}
		m.Decisions.WithLabelValues(level, reason).Inc()
	}
}

func (m *Metrics) IncIntegrityFault(source string) {
	if m != nil {
		m.IntegrityFaults.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncClearanceDegraded() {
	if m != nil {
		m.ClearanceDegraded.Inc()
	}
}

// ObserveCheckLatency records the total check duration.
func (m *Metrics) ObserveCheckLatency(d time.Duration) {
	if m != nil {
		m.CheckLatency.Observe(d.Seconds())
	}
}
