package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. Component metrics register against it so tests can use a fresh
// registry per case.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics holds the linking workflow and admin API metrics.
type Metrics struct {
	LinkTokensIssued prometheus.Counter
	LinkClaims       *prometheus.CounterVec
	Unlinks          prometheus.Counter
	ClaimLockouts    prometheus.Counter
	HTTPRequests     *prometheus.HistogramVec
}

// New creates and registers the process-level metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LinkTokensIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_link_tokens_issued_total",
			Help: "Total number of link tokens issued",
		}),
		LinkClaims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "corpauth_link_claims_total",
			Help: "Link token claims by outcome",
		}, []string{"outcome"}), // outcome: "linked", "rejected", "error"
		Unlinks: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_unlinks_total",
			Help: "Total number of identities unlinked by an administrator",
		}),
		ClaimLockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "corpauth_claim_lockouts_total",
			Help: "Chat users locked out after too many rejected claims",
		}),
		HTTPRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corpauth_http_request_duration_seconds",
			Help:    "Admin API request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncrementLinkTokensIssued counts an issued link token.
func (m *Metrics) IncrementLinkTokensIssued() {
	if m != nil {
		m.LinkTokensIssued.Inc()
	}
}

// IncrementLinkClaim records the outcome of a claim attempt.
func (m *Metrics) IncrementLinkClaim(outcome string) {
	if m != nil {
		m.LinkClaims.WithLabelValues(outcome).Inc()
	}
}

// IncrementUnlinks counts a completed unlink.
func (m *Metrics) IncrementUnlinks() {
	if m != nil {
		m.Unlinks.Inc()
	}
}

// IncrementClaimLockout counts a chat user reaching the claim failure limit.
func (m *Metrics) IncrementClaimLockout() {
	if m != nil {
		m.ClaimLockouts.Inc()
	}
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
