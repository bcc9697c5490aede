package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the audit feature.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	RecordFailures *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
	EventsPruned   prometheus.Counter
	PruneRuns      *prometheus.CounterVec
}

// New creates and registers the audit metrics.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_events_recorded_total",
			Help: "Total audit events persisted, by origin service and action.",
		}, []string{"service", "action"}),
		RecordFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_record_failures_total",
			Help: "Total record operations rejected or failed, by reason.",
		}, []string{"reason"}),
		QueryDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "audittrail_query_duration_seconds",
			Help:    "Latency of ledger list queries.",
			Buckets: prometheus.DefBuckets,
		}),
		EventsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_events_pruned_total",
			Help: "Total audit events removed by retention.",
		}),
		PruneRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_prune_runs_total",
			Help: "Total prune operations, by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveQuery records one list-query latency sample.
func (m *Metrics) ObserveQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.Observe(d.Seconds())
}

// IncRecorded counts a persisted event.
func (m *Metrics) IncRecorded(service, action string) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(service, action).Inc()
}

// IncRecordFailure counts a rejected or failed record operation.
func (m *Metrics) IncRecordFailure(reason string) {
	if m == nil {
		return
	}
	m.RecordFailures.WithLabelValues(reason).Inc()
}

// ObservePrune counts a prune run and the rows it removed.
func (m *Metrics) ObservePrune(removed int64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PruneRuns.WithLabelValues("error").Inc()
		return
	}
	m.PruneRuns.WithLabelValues("ok").Inc()
	m.EventsPruned.Add(float64(removed))
}
