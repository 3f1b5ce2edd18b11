package action

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for the action layer.
var metrics = struct {
	// ActionsTotal counts entity operations by collection and status.
	ActionsTotal *prometheus.CounterVec

	// ValidationFailures counts payloads rejected before the network.
	ValidationFailures *prometheus.CounterVec
}{
	ActionsTotal: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "action",
			Name:      "operations_total",
			Help:      "Total number of entity operations",
		},
		[]string{"collection", "operation", "status"},
	),

	ValidationFailures: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gqlflux",
			Subsystem: "action",
			Name:      "validation_failures_total",
			Help:      "Total number of payloads rejected by validation",
		},
		[]string{"collection"},
	),
}

func observeAction(collection, operation, status string) {
	metrics.ActionsTotal.WithLabelValues(collection, operation, status).Inc()
}

func observeValidationFailure(collection string) {
	metrics.ValidationFailures.WithLabelValues(collection).Inc()
}
