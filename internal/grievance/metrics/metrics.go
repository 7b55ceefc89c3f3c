package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the grievance lifecycle.
type Metrics struct {
	Created     prometheus.Counter
	Transitions *prometheus.CounterVec
	BulkItems   *prometheus.CounterVec
	BulkLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "civicchain_grievances_created_total",
			Help: "Grievances raised",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_grievance_transitions_total",
			Help: "Applied status transitions by target status",
		}, []string{"status"}),
		BulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicchain_grievance_bulk_items_total",
			Help: "Bulk transition items by outcome",
		}, []string{"outcome"}), // outcome: "updated", "failed"
		BulkLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "civicchain_grievance_bulk_duration_seconds",
			Help:    "Time to apply one bulk transition request",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

func (m *Metrics) IncTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveBulk(updated, failed int, seconds float64) {
	if m == nil {
		return
	}
	m.BulkItems.WithLabelValues("updated").Add(float64(updated))
	m.BulkItems.WithLabelValues("failed").Add(float64(failed))
	m.BulkLatency.Observe(seconds)
}
