// Package metrics defines Betfair API metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Betfair counter vectors
var (
	BetfairRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "betfair_requests_total",
		Help:      "Total number of Betfair API requests by operation and outcome",
	}, []string{"operation", "outcome"})

	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of HTTP circuit breaker trips",
	})
)

// Betfair histogram vectors
var (
	BetfairRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "odds_tracker",
		Name:      "betfair_request_latency_seconds",
		Help:      "Latency of Betfair API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// RecordBetfairRequest records one Betfair API call.
func RecordBetfairRequest(operation string, success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	BetfairRequestsTotal.WithLabelValues(operation, outcome).Inc()
	BetfairRequestLatency.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}
