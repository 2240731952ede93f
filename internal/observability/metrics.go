package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikesToggled counts like toggles by resulting action (like|unlike).
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_likes_toggled_total",
		Help: "Total number of like toggles by resulting action",
	}, []string{"action"})

	// CommentsCreated counts stored comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialhub_comments_created_total",
		Help: "Total number of comments created",
	})

	// NotificationsDispatched counts fan-out attempts by type and result.
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_notifications_dispatched_total",
		Help: "Total number of notification fan-outs by type and result",
	}, []string{"type", "result"})

	// DispatchQueueDepth is the number of engagement events waiting for a worker.
	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialhub_dispatch_queue_depth",
		Help: "Number of engagement events waiting to be dispatched",
	})

	// StoreOperationDuration records document store latency by driver and operation.
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialhub_store_operation_duration_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver", "op"})

	// StoreTxRetries counts optimistic transaction retries per driver.
	StoreTxRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_store_tx_retries_total",
		Help: "Total number of optimistic transaction retries",
	}, []string{"driver"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RateLimitDecisions counts rate limiter outcomes.
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_rate_limit_decisions_total",
		Help: "Total number of rate limit decisions by limiter and result",
	}, []string{"name", "result"})

	// WebSocketConnectionsTotal is the gauge of active WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialhub_websocket_active_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackStoreOperation returns a function that records store latency when called (e.g. defer).
func TrackStoreOperation(driver, op string) func() {
	start := time.Now()
	return func() {
		StoreOperationDuration.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
	}
}
