package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnauthenticated    = "unauthenticated"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeError              = "error"
)

// Metrics holds the counters for one service. Each service owns its own
// registry so instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	Signups       *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	GateDecisions *prometheus.CounterVec
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	labels := prometheus.Labels{"service": service}

	return &Metrics{
		registry: reg,
		Signups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_signups_total",
				Help:        "Total number of signup attempts by outcome.",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_logins_total",
				Help:        "Total number of login attempts by outcome.",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		GateDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_gate_decisions_total",
				Help:        "Total number of bearer authentication decisions by outcome.",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) RecordSignup(outcome string) {
	m.Signups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGateDecision(outcome string) {
	m.GateDecisions.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
