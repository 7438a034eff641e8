package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service level collectors. Transaction scope metrics live
// in pkg/transactions.
type Metrics struct {
	CounterIncrements *prometheus.CounterVec
	CounterValue      *prometheus.GaugeVec
	CounterRetries    prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg, or on the default registerer
// when reg is nil. Registering twice on the same registry panics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	auto := promauto.With(reg)

	return &Metrics{
		CounterIncrements: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_increments_total",
			Help:      "Counter increments by result (ok, error).",
		}, []string{"result"}),
		CounterValue: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "counter_value",
			Help:      "Last value observed for each counter.",
		}, []string{"name"}),
		CounterRetries: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_retries_total",
			Help:      "Increment transactions retried after a write conflict.",
		}),
		HTTPRequestsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),
		CircuitBreakerState: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per dependency: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}
}
