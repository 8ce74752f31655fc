package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the affiliation source client.
type Metrics struct {
	// Upstream call latency by operation and outcome
	CallDuration *prometheus.HistogramVec

	// Batch sizes submitted to the affiliation endpoint
	BatchSize prometheus.Histogram

	// 1 while the upstream circuit is open
	CircuitOpen prometheus.Gauge
}

// New creates the client metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corpauth_affiliation_call_duration_seconds",
			Help:    "Duration of affiliation source calls by operation and outcome",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op", "outcome"}), // op: "affiliation", "character", "ticker"

		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "corpauth_affiliation_batch_size",
			Help:    "Number of character ids per affiliation lookup",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 250, 500, 1000},
		}),

		CircuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "corpauth_affiliation_circuit_open",
			Help: "Whether the affiliation source circuit breaker is open",
		}),
	}
}

// ObserveCall records one upstream call.
func (m *Metrics) ObserveCall(op, outcome string, d time.Duration) {
	if m != nil {
		m.CallDuration.WithLabelValues(op, outcome).Observe(d.Seconds())
	}
}

// ObserveBatchSize records the size of an affiliation lookup.
func (m *Metrics) ObserveBatchSize(n int) {
	if m != nil {
		m.BatchSize.Observe(float64(n))
	}
}

// SetCircuitOpen tracks the breaker state.
func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitOpen.Set(1)
	} else {
		m.CircuitOpen.Set(0)
	}
}
