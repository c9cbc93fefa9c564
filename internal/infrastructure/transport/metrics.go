package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by the metrics collector.
const (
	outcomeSuccess        = "success"
	outcomeHTTPError      = "http_error"
	outcomeAppError       = "app_error"
	outcomeTransportError = "transport_error"
)

// Metrics records request counts and latencies for the transport client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates transport metrics registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniondash",
			Name:      "requests_total",
			Help:      "Total backend requests by method and outcome.",
		}, []string{"method", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uniondash",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requestsTotal, m.requestDuration)
	}
	return m
}

func (m *Metrics) observe(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}
