package sequence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks allocator activity.
type Metrics struct {
	allocations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	latency     prometheus.Histogram
}

// NewMetrics registers the allocator metrics with reg. A nil registerer
// yields working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_sequence_allocations_total",
			Help: "Total number of sequence values issued",
		}, []string{"sequence"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_sequence_failures_total",
			Help: "Total number of failed sequence allocations",
		}, []string{"sequence", "kind"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "helpdesk_sequence_allocation_duration_seconds",
			Help:    "Latency of the counter store increment",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) allocated(name string) {
	m.allocations.WithLabelValues(name).Inc()
}

func (m *Metrics) failed(name string, err error) {
	m.failures.WithLabelValues(name, failureKind(err)).Inc()
}

func (m *Metrics) observe(d time.Duration) {
	m.latency.Observe(d.Seconds())
}
