package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for outing statistics mutations.
type Metrics struct {
	Mutations   *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
	Resets      prometheus.Counter
}

// New registers outing collectors on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers outing collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_outing_mutations_total",
			Help: "Total number of committed outing statistics mutations",
		}, []string{"op"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_outing_rejections_total",
			Help: "Total number of outing mutations rejected for invalid input",
		}, []string{"op"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_outing_store_errors_total",
			Help: "Total number of outing mutations that failed to persist",
		}, []string{"op"}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "nightout_outing_resets_total",
			Help: "Total number of outing resets",
		}),
	}
}

func (m *Metrics) IncrementMutation(op string) {
	m.Mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementRejection(op string) {
	m.Rejections.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementStoreError(op string) {
	m.StoreErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementReset() {
	m.Resets.Inc()
}
