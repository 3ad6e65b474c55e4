package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for auth state and profile provisioning.
type Metrics struct {
	Notifications       *prometheus.CounterVec
	SignOuts            *prometheus.CounterVec
	Provisioning        *prometheus.CounterVec
	ProvisionDropped    prometheus.Counter
	ProvisionDurationMs prometheus.Histogram
	Authenticated       prometheus.Gauge
}

// New registers auth collectors on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers auth collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_auth_notifications_total",
			Help: "Total number of identity platform notifications applied",
		}, []string{"event"}),
		SignOuts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_auth_signouts_total",
			Help: "Total number of sign-out attempts by result",
		}, []string{"result"}),
		Provisioning: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_profile_provisioning_total",
			Help: "Total number of profile provisioning jobs by result",
		}, []string{"result"}),
		ProvisionDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "nightout_profile_provisioning_dropped_total",
			Help: "Total number of provisioning jobs dropped because the queue was full",
		}),
		ProvisionDurationMs: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nightout_profile_provisioning_duration_ms",
			Help:    "Duration of profile provisioning in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		Authenticated: f.NewGauge(prometheus.GaugeOpts{
			Name: "nightout_auth_authenticated",
			Help: "1 when a session is present, 0 otherwise",
		}),
	}
}

func (m *Metrics) IncrementNotification(event string) {
	m.Notifications.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrementSignOut(result string) {
	m.SignOuts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementProvisioning(result string) {
	m.Provisioning.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementProvisionDropped() {
	m.ProvisionDropped.Inc()
}

func (m *Metrics) ObserveProvisionDuration(durationMs float64) {
	m.ProvisionDurationMs.Observe(durationMs)
}

func (m *Metrics) SetAuthenticated(authenticated bool) {
	if authenticated {
		m.Authenticated.Set(1)
		return
	}
	m.Authenticated.Set(0)
}
