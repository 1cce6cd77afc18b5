// Package metrics exposes Prometheus collectors for the CredoSafe client.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the client-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credosafe",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of API requests issued.",
		},
		[]string{"method", "path", "status"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "credosafe",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	apiRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "credosafe",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Total number of request retries.",
		},
	)

	circuitState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "credosafe",
			Subsystem: "client",
			Name:      "circuit_state",
			Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open).",
		},
	)

	healthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credosafe",
			Subsystem: "healthwatch",
			Name:      "checks_total",
			Help:      "Total number of health checks per target.",
		},
		[]string{"target", "result"},
	)
)

func init() {
	Registry.MustRegister(apiRequests, apiDuration, apiRetries, circuitState, healthChecks)
}

// ObserveRequest records one API request. Status 0 means a transport failure.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	code := "network_error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	apiRequests.WithLabelValues(method, path, code).Inc()
	apiDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// CountRetry records a retried request attempt.
func CountRetry() {
	apiRetries.Inc()
}

// SetCircuitState records the circuit breaker state.
func SetCircuitState(state int) {
	circuitState.Set(float64(state))
}

// ObserveHealthCheck records one health check outcome.
func ObserveHealthCheck(target string, healthy bool) {
	result := "ok"
	if !healthy {
		result = "error"
	}
	healthChecks.WithLabelValues(target, result).Inc()
}

// Handler returns an HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
