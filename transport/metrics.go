package transport

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for the transport layer.
var metrics = struct {
	// RequestDuration tracks GraphQL request duration in seconds.
	RequestDuration *prometheus.HistogramVec

	// RequestsTotal counts GraphQL requests by endpoint and status.
	RequestsTotal *prometheus.CounterVec

	// RefreshTotal counts token refresh attempts by status.
	RefreshTotal *prometheus.CounterVec

	// SessionInvalidations counts backend-initiated session clears.
	SessionInvalidations prometheus.Counter

	// RetriesRecorded counts retry records dispatched to the store.
	RetriesRecorded prometheus.Counter
}{
	RequestDuration: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gqlflux",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Duration of GraphQL requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"endpoint", "operation"},
	),

	RequestsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Total number of GraphQL requests",
		},
		[]string{"endpoint", "operation", "status"},
	),

	RefreshTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "transport",
			Name:      "token_refreshes_total",
			Help:      "Total number of token refresh attempts",
		},
		[]string{"status"},
	),

	SessionInvalidations: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "transport",
			Name:      "session_invalidations_total",
			Help:      "Total number of sessions invalidated by the backend",
		},
	),

	RetriesRecorded: promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "transport",
			Name:      "retries_recorded_total",
			Help:      "Total number of retry records dispatched to the store",
		},
	),
}

func observeRequest(endpoint, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RequestDuration.WithLabelValues(endpoint, operation).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(endpoint, operation, status).Inc()
}

func observeRefresh(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RefreshTotal.WithLabelValues(status).Inc()
}

func observeSessionInvalidated() {
	metrics.SessionInvalidations.Inc()
}

func observeRetryRecorded() {
	metrics.RetriesRecorded.Inc()
}
