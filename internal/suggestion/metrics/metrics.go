package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Requests     *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_suggestion_requests_total",
			Help: "Suggestion lookups by kind and source",
		}, []string{"kind", "source"}), // source: "classifier", "fallback"
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "civicchain_suggestion_breaker_open",
			Help: "1 when the classifier circuit breaker is open",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncRequest(kind, source string) {
	if m != nil {
		m.Requests.WithLabelValues(kind, source).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(kind string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerState.WithLabelValues(kind).Set(v)
}
