package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the check flow.
type Metrics struct {
	ChecksStarted   prometheus.Counter
	ValidationFails *prometheus.CounterVec
	OTPResults      *prometheus.CounterVec
	Outcomes        *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	ActiveRuns      prometheus.Gauge
}

// New registers the check metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChecksStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "dbtcheck_checks_started_total",
			Help: "Check sessions created after a valid identity number",
		}),
		ValidationFails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_validation_failures_total",
			Help: "Rejected identity numbers by reason",
		}, []string{"reason"}), // reason: "invalid_length", "invalid_pattern"
		OTPResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_otp_verifications_total",
			Help: "OTP verification attempts by result",
		}, []string{"result"}), // result: "verified", "mismatch", "expired", "attempts_exceeded"
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_outcomes_total",
			Help: "Completed checks by receipt tier and verifier",
		}, []string{"tier", "verifier"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dbtcheck_run_duration_seconds",
			Help:    "Time from OTP success to receipt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		ActiveRuns: f.NewGauge(prometheus.GaugeOpts{
			Name: "dbtcheck_active_runs",
			Help: "Checks currently revealing status fields",
		}),
	}
}

func (m *Metrics) IncrementStarted() {
	if m != nil {
		m.ChecksStarted.Inc()
	}
}

func (m *Metrics) IncrementValidationFailure(reason string) {
	if m != nil {
		m.ValidationFails.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementOTPResult(result string) {
	if m != nil {
		m.OTPResults.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementOutcome(tier, verifier string) {
	if m != nil {
		m.Outcomes.WithLabelValues(tier, verifier).Inc()
	}
}

func (m *Metrics) ObserveRunDuration(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RunStarted() {
	if m != nil {
		m.ActiveRuns.Inc()
	}
}

func (m *Metrics) RunFinished() {
	if m != nil {
		m.ActiveRuns.Dec()
	}
}
