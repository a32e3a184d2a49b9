package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pledge outcomes recorded by PledgesTotal.
const (
	PledgeAccepted = "accepted"
	PledgeClosed   = "closed"
	PledgeRejected = "rejected"
)

var (
	// PledgesTotal counts pledge attempts by outcome.
	PledgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crowdfund_pledges_total",
		Help: "Total number of pledge attempts by outcome",
	}, []string{"outcome"})

	// PledgedAmountTotal sums accepted pledge amounts.
	PledgedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_pledged_amount_total",
		Help: "Sum of accepted pledge amounts",
	})

	// ProjectsPublishedTotal counts draft to published transitions.
	ProjectsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_projects_published_total",
		Help: "Total number of projects published",
	})

	// CategoryReassignments counts projects moved to the sentinel category.
	CategoryReassignments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crowdfund_category_reassignments_total",
		Help: "Projects reassigned to the sentinel category on category delete",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crowdfund_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crowdfund_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records latency when called. Repositories
// use it for whole transactions; single statements are timed by GORM callbacks.
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordPledge counts a pledge attempt.
func RecordPledge(outcome string, amount int) {
	PledgesTotal.WithLabelValues(outcome).Inc()
	if outcome == PledgeAccepted {
		PledgedAmountTotal.Add(float64(amount))
	}
}
