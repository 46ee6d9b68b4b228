package reflector

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics accumulates queryable reflection statistics — total calls,
// successes, failures, total retries, retry rate, per-tool distribution —
// and mirrors them to Prometheus.
type Metrics struct {
	totalCalls   atomic.Int64
	successes    atomic.Int64
	failures     atomic.Int64
	totalRetries atomic.Int64

	mu         sync.Mutex
	perTool    map[string]int64

	promCalls     *prometheus.CounterVec
	promRetries   prometheus.Counter
	confHistogram prometheus.Histogram
}

// NewMetrics creates reflection metrics. reg may be nil to skip Prometheus
// registration (e.g. in unit tests).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		perTool: make(map[string]int64),
		promCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchd_reflector_calls_total",
			Help: "Total reflected tool calls by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		promRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orchd_reflector_retries_total",
			Help: "Total reflection-triggered retries.",
		}),
		confHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchd_reflector_confidence",
			Help:    "Judge-reported confidence per verdict (0-100).",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.promCalls, m.promRetries, m.confHistogram)
	}
	return m
}

// Observe records one verdict against a named tool. retried indicates this
// call was itself a retry attempt (attempt > 1).
func (m *Metrics) Observe(tool string, v Verdict, retried bool) {
	m.totalCalls.Add(1)
	if v.Success {
		m.successes.Add(1)
	} else {
		m.failures.Add(1)
	}
	if retried {
		m.totalRetries.Add(1)
		m.promRetries.Inc()
	}

	outcome := "failure"
	if v.Success {
		outcome = "success"
	}
	m.promCalls.WithLabelValues(tool, outcome).Inc()
	m.confHistogram.Observe(float64(v.Confidence))

	m.mu.Lock()
	m.perTool[tool]++
	m.mu.Unlock()
}

// Snapshot is a point-in-time read of accumulated reflection metrics.
type Snapshot struct {
	TotalCalls   int64
	Successes    int64
	Failures     int64
	TotalRetries int64
	RetryRate    float64
	PerTool      map[string]int64
}

// Snapshot returns the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.totalCalls.Load()
	retries := m.totalRetries.Load()
	var rate float64
	if total > 0 {
		rate = float64(retries) / float64(total)
	}

	m.mu.Lock()
	perTool := make(map[string]int64, len(m.perTool))
	for k, v := range m.perTool {
		perTool[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		TotalCalls:   total,
		Successes:    m.successes.Load(),
		Failures:     m.failures.Load(),
		TotalRetries: retries,
		RetryRate:    rate,
		PerTool:      perTool,
	}
}
