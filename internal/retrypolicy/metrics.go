package retrypolicy

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors for retry attempts: a counter of
// attempts by outcome and a histogram of inter-attempt delays.
type Metrics struct {
	AttemptsTotal *prometheus.CounterVec
	DelaySeconds  prometheus.Histogram
}

// NewMetrics creates retry metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchd_retry_attempts_total",
			Help: "Total retry attempts by outcome.",
		}, []string{"outcome"}),
		DelaySeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchd_retry_delay_seconds",
			Help:    "Delay before each retry attempt.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AttemptsTotal, m.DelaySeconds)
	}
	return m
}

// Observe records the outcome of a completed Execute call.
func (m *Metrics) Observe(result Result) {
	if m == nil {
		return
	}
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	m.AttemptsTotal.WithLabelValues(outcome).Add(float64(result.TotalAttempts))
	for _, rec := range result.RetryHistory {
		if rec.Delay > 0 {
			m.DelaySeconds.Observe(rec.Delay.Seconds())
		}
	}
}
