package journal

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for the journal's batched writer:
// events enqueued, batches flushed, write failures (counted and re-emitted
// as a rate-limited warning event), and flush latency.
type Metrics struct {
	EventsEnqueued prometheus.Counter
	BatchesFlushed prometheus.Counter
	WriteFailures  prometheus.Counter
	FlushDuration  prometheus.Histogram
}

// NewMetrics creates journal metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchd_journal_events_enqueued_total",
			Help: "Total journal events enqueued for writing.",
		}),
		BatchesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchd_journal_batches_flushed_total",
			Help: "Total journal write batches flushed.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchd_journal_write_failures_total",
			Help: "Total journal batch commit failures.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchd_journal_flush_duration_seconds",
			Help:    "Duration of each journal batch commit.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.EventsEnqueued, m.BatchesFlushed, m.WriteFailures, m.FlushDuration)
	}
	return m
}
