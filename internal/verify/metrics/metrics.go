package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationsTotal *prometheus.CounterVec
	ResolveDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		VerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "botica_verifications_total",
			Help: "Total number of identity verifications by outcome",
		}, []string{"outcome"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "botica_verify_resolve_duration_seconds",
			Help:    "Latency of identity resolution lookups",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) RecordOutcome(outcome string) {
	m.VerificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveResolve(d time.Duration) {
	m.ResolveDuration.Observe(d.Seconds())
}
