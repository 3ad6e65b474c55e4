package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP transport metrics shared by every route.
type Metrics struct {
	Requests        *prometheus.CounterVec
	EndpointLatency *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// New creates and registers the metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nightout_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nightout_http_request_duration_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nightout_http_requests_in_flight",
			Help: "Current number of requests being served",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.Requests.WithLabelValues(route, method, status).Inc()
	m.EndpointLatency.WithLabelValues(route).Observe(seconds)
}
