package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions       *prometheus.CounterVec
	AllowlistBypass prometheus.Counter
	StoreFailOpen   prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_ratelimit_decisions_total",
			Help: "Rate limit decisions by endpoint class",
		}, []string{"class", "decision"}), // decision: "allowed", "denied"
		AllowlistBypass: f.NewCounter(prometheus.CounterOpts{
			Name: "dbtcheck_ratelimit_allowlist_bypass_total",
			Help: "Requests that skipped rate limiting via the allowlist",
		}),
		StoreFailOpen: f.NewCounter(prometheus.CounterOpts{
			Name: "dbtcheck_ratelimit_fail_open_total",
			Help: "Requests let through because the bucket store failed",
		}),
	}
}

func (m *Metrics) RecordDecision(class string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.Decisions.WithLabelValues(class, decision).Inc()
}

func (m *Metrics) RecordAllowlistBypass() {
	if m != nil {
		m.AllowlistBypass.Inc()
	}
}

func (m *Metrics) RecordFailOpen() {
	if m != nil {
		m.StoreFailOpen.Inc()
	}
}
