package flow

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus collectors for flow step execution.
type Metrics struct {
	StepsTotal    *prometheus.CounterVec
	StepDuration  prometheus.Histogram
}

// NewMetrics creates and registers flow metrics. reg may be nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchd_flow_steps_total",
			Help: "Total flow step executions by outcome.",
		}, []string{"outcome"}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchd_flow_step_duration_seconds",
			Help:    "Duration of each flow step execution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.StepsTotal, m.StepDuration)
	}
	return m
}

// ObserveStep records one step's outcome and duration.
func (m *Metrics) ObserveStep(stepID string, success bool, durationMs int64) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.StepsTotal.WithLabelValues(outcome).Inc()
	m.StepDuration.Observe(float64(durationMs) / 1000)
}
