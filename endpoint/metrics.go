package endpoint

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors updated by the registry.
type Metrics struct {
	Probes        *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
	Up            *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semsync",
				Subsystem: "endpoint",
				Name:      "probes_total",
				Help:      "Total number of endpoint health probes",
			},
			[]string{"type", "result"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semsync",
				Subsystem: "endpoint",
				Name:      "probe_duration_seconds",
				Help:      "Endpoint health probe duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		Up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "semsync",
				Subsystem: "endpoint",
				Name:      "up",
				Help:      "Whether the endpoint answered its last probe (1) or not (0)",
			},
			[]string{"url", "type"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Probes, m.ProbeDuration, m.Up)
	}
	return m
}

func (m *Metrics) observe(ep Endpoint, status Status, seconds float64) {
	if m == nil {
		return
	}
	result := "inactive"
	up := 0.0
	if status == StatusActive {
		result = "active"
		up = 1
	}
	m.Probes.WithLabelValues(string(ep.Type), result).Inc()
	m.ProbeDuration.WithLabelValues(string(ep.Type)).Observe(seconds)
	m.Up.WithLabelValues(ep.URL, string(ep.Type)).Set(up)
}

func (m *Metrics) forget(ep Endpoint) {
	if m == nil {
		return
	}
	m.Up.DeleteLabelValues(ep.URL, string(ep.Type))
}
