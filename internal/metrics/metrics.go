package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	LabelBackend = "backend"
	LabelOutcome = "outcome"

	OutcomeStarted = "started"
	OutcomeFailed  = "failed"
)

type Metrics struct {
	provisionTotal    *prometheus.CounterVec
	provisionDuration *prometheus.HistogramVec
	running           prometheus.Gauge
}

// NewMetrics creates the provisioning collectors and registers them with
// registry. A nil registry leaves them unregistered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		provisionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "devservices",
				Name:      "provision_total",
				Help:      "Provisioning attempts by backend and outcome.",
			},
			[]string{LabelBackend, LabelOutcome},
		),
		provisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "devservices",
				Name:      "provision_duration_seconds",
				Help:      "Time from container creation until the engine accepted connections.",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{LabelBackend},
		),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devservices",
			Name:      "running",
			Help:      "Dev service containers currently running.",
		}),
	}

	if registry != nil {
		registry.MustRegister(m.provisionTotal, m.provisionDuration, m.running)
	}
	return m
}

func (m *Metrics) ObserveStarted(backend string, took time.Duration) {
	if m == nil {
		return
	}
	m.provisionTotal.WithLabelValues(backend, OutcomeStarted).Inc()
	m.provisionDuration.WithLabelValues(backend).Observe(took.Seconds())
	m.running.Inc()
}

func (m *Metrics) ObserveFailed(backend string) {
	if m == nil {
		return
	}
	m.provisionTotal.WithLabelValues(backend, OutcomeFailed).Inc()
}

func (m *Metrics) ObserveReleased() {
	if m == nil {
		return
	}
	m.running.Dec()
}
