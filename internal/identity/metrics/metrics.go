package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential store.
type Metrics struct {
	Registrations  prometheus.Counter
	LoginOutcomes  *prometheus.CounterVec
	BindingOutcome *prometheus.CounterVec
}

// New registers identity metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "civicchain_identity_registrations_total",
			Help: "Total citizen accounts registered",
		}),
		LoginOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_identity_logins_total",
			Help: "Citizen login attempts by outcome",
		}, []string{"outcome"}), // outcome: "success", "failure"
		BindingOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_identity_bindings_total",
			Help: "Identity binding attempts by outcome",
		}, []string{"outcome"}), // outcome: "bound", "unchanged", "conflict"
	}
}

func (m *Metrics) IncRegistration() {
	if m != nil {
		m.Registrations.Inc()
	}
}

func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.LoginOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncBinding(outcome string) {
	if m != nil {
		m.BindingOutcome.WithLabelValues(outcome).Inc()
	}
}
