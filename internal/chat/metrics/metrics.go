package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the chat proxy.
type Metrics struct {
	Requests         *prometheus.CounterVec
	Retries          *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	InFlight         prometheus.Gauge
}

// New registers the chat metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_chat_requests_total",
			Help: "Chat sends by profile and outcome",
		}, []string{"profile", "outcome"}), // outcome: "ok" or an upstream category
		Retries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbtcheck_chat_upstream_retries_total",
			Help: "Retried upstream calls by reason",
		}, []string{"reason"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dbtcheck_chat_upstream_duration_seconds",
			Help:    "Time spent waiting on the generative endpoint, retries included",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"profile"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "dbtcheck_chat_inflight",
			Help: "Chat sends waiting on the upstream",
		}),
	}
}

func (m *Metrics) IncrementRequest(profile, outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(profile, outcome).Inc()
	}
}

func (m *Metrics) IncrementRetry(reason string) {
	if m != nil {
		m.Retries.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveUpstream(profile string, start time.Time) {
	if m != nil {
		m.UpstreamDuration.WithLabelValues(profile).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncrementInFlight() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) DecrementInFlight() {
	if m != nil {
		m.InFlight.Dec()
	}
}
