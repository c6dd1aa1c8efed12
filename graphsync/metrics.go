package graphsync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors updated by the service.
type Metrics struct {
	Operations *prometheus.CounterVec
	Quads      *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semsync",
				Subsystem: "sync",
				Name:      "operations_total",
				Help:      "Total number of load and sync operations",
			},
			[]string{"op", "result"},
		),
		Quads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semsync",
				Subsystem: "sync",
				Name:      "quads_total",
				Help:      "Total number of quads loaded or sent",
			},
			[]string{"op"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semsync",
				Subsystem: "sync",
				Name:      "operation_duration_seconds",
				Help:      "Load and sync duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Operations, m.Quads, m.Duration)
	}
	return m
}

func (m *Metrics) record(op string, start time.Time, quads int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		m.Quads.WithLabelValues(op).Add(float64(quads))
	}
}
