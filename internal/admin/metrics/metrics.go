package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for operator sessions.
type Metrics struct {
	Logins       *prometheus.CounterVec
	Lockouts     prometheus.Counter
	ActiveChange *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_admin_logins_total",
			Help: "Operator login attempts by outcome",
		}, []string{"outcome"}), // outcome: "success", "failure", "locked"
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "civicchain_admin_lockouts_total",
			Help: "Operator emails locked after repeated failures",
		}),
		ActiveChange: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_admin_session_events_total",
			Help: "Operator session lifecycle events",
		}, []string{"event"}), // event: "created", "extended", "revoked", "expired"
	}
}

func (m *Metrics) IncLogin(outcome string) {
	if m != nil {
		m.Logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncLockout() {
	if m != nil {
		m.Lockouts.Inc()
	}
}

func (m *Metrics) IncSessionEvent(event string) {
	if m != nil {
		m.ActiveChange.WithLabelValues(event).Inc()
	}
}
