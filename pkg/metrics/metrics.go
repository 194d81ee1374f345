package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	// Size of the closure a single task move touched.
	RescheduleCascadeSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reschedule_cascade_size",
			Help:    "Number of tasks updated by one reschedule operation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	RescheduleFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reschedule_failure_count",
			Help: "Total number of rejected reschedule operations",
		},
		[]string{"reason"}, // reason: out_of_bounds, invalid_range, blocked_status
	)

	ProposalDecisionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposal_decision_count",
			Help: "Total number of change proposal decisions",
		},
		[]string{"outcome"}, // outcome: approved, rejected, auto_rejected
	)

	EventPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_published_count",
			Help: "Total number of events published to the broker",
		},
		[]string{"routing_key", "status"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func RecordRescheduleCascade(size int) {
	RescheduleCascadeSize.Observe(float64(size))
}

func IncrementRescheduleFailure(reason string) {
	RescheduleFailureCount.WithLabelValues(reason).Inc()
}

func IncrementProposalDecision(outcome string) {
	ProposalDecisionCount.WithLabelValues(outcome).Inc()
}

func IncrementEventPublished(routingKey, status string) {
	EventPublishedCount.WithLabelValues(routingKey, status).Inc()
}
