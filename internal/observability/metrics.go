// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// RateLimitDecisions counts rate limiter outcomes by resource
	// (allowed, limited, fail_open, fail_closed).
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_rate_limit_decisions_total",
		Help: "Total number of rate limit decisions by resource and outcome",
	}, []string{"resource", "decision"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recipebox_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_cache_lookups_total",
		Help: "Total number of cache-aside lookups by result",
	}, []string{"result"})

	// LikeOperations counts like/unlike calls by action and whether the recipe existed.
	LikeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_like_operations_total",
		Help: "Total number of like and unlike operations",
	}, []string{"action", "result"})

	// AuthEvents counts registration and login attempts by outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_auth_events_total",
		Help: "Total number of authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// RecipeMutations counts owner mutations by operation and outcome.
	RecipeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipebox_recipe_mutations_total",
		Help: "Total number of recipe create/update/delete operations",
	}, []string{"operation", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
