package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for reconciliation passes and events.
type Metrics struct {
	// Pass outcomes: "completed", "cancelled", "failed", "skipped"
	Passes *prometheus.CounterVec

	PassDuration prometheus.Histogram

	// Identities whose affiliation or presentation was repaired
	Repairs prometheus.Counter

	// Characters found to no longer exist upstream
	Vanished prometheus.Counter

	// Chunks abandoned by reason: "lookup", "not_converged"
	ChunkFailures *prometheus.CounterVec

	// Chat gateway sub-operation failures: "rename", "add_roles", "remove_roles", "member"
	GatewayFailures *prometheus.CounterVec

	// Membership events handled: "join", "leave", "absent"
	MembershipEvents *prometheus.CounterVec

	// Jobs dropped because the worker inbox was full
	JobsDropped prometheus.Counter
}

// New creates the reconciliation metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corpauth_reconcile_passes_total",
			Help: "Reconciliation passes by outcome",
		}, []string{"outcome"}),

		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "corpauth_reconcile_pass_duration_seconds",
			Help:    "Duration of full reconciliation passes",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		Repairs: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_reconcile_repairs_total",
			Help: "Identities repaired by reconciliation",
		}),

		Vanished: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_reconcile_vanished_characters_total",
			Help: "Characters that no longer exist upstream",
		}),

		ChunkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corpauth_reconcile_chunk_failures_total",
			Help: "Chunks abandoned for the current pass by reason",
		}, []string{"reason"}),

		GatewayFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corpauth_reconcile_gateway_failures_total",
			Help: "Failed chat gateway operations by operation",
		}, []string{"op"}),

		MembershipEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corpauth_reconcile_membership_events_total",
			Help: "Membership observations handled by kind",
		}, []string{"kind"}),

		JobsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_reconcile_jobs_dropped_total",
			Help: "Jobs rejected because the worker inbox was full",
		}),
	}
}

func (m *Metrics) IncrementPass(outcome string) {
	if m != nil {
		m.Passes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObservePassDuration(d time.Duration) {
	if m != nil {
		m.PassDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRepairs() {
	if m != nil {
		m.Repairs.Inc()
	}
}

func (m *Metrics) AddVanished(n int) {
	if m != nil && n > 0 {
		m.Vanished.Add(float64(n))
	}
}

func (m *Metrics) IncrementChunkFailure(reason string) {
	if m != nil {
		m.ChunkFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementGatewayFailure(op string) {
	if m != nil {
		m.GatewayFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncrementMembershipEvent(kind string) {
	if m != nil {
		m.MembershipEvents.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) IncrementJobsDropped() {
	if m != nil {
		m.JobsDropped.Inc()
	}
}
