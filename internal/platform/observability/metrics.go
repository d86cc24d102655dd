// Package observability defines the broker and producer's prometheus
// metrics. Collectors are package-level so every adapter and worker
// shares one registry via promauto, registered at import time.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_received_total",
		Help: "Total order events accepted by the broker's ingest endpoint.",
	})

	DuplicateOrdersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_orders_total",
		Help: "Total ingest calls that matched an existing (source_id, event_type) pair.",
	})

	OrdersProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_processed_total",
		Help: "Total order events marked done by a consumer.",
	})

	OrdersFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total order events that exhausted their retry budget and became fallow.",
	})

	OrdersPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orders_pending",
		Help: "Current count of pending order events under the retry budget, including those waiting on a scheduled retry.",
	})

	RetryQueueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retry_queue_size",
		Help: "Current count of pending order events waiting on a scheduled retry.",
	})

	OrderProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_processing_duration_seconds",
		Help:    "Time between an order event's ingest and its mark-done call.",
		Buckets: prometheus.DefBuckets,
	})

	ProducerOutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "producer_outbox_depth",
		Help: "Current number of envelopes queued in the producer's durable outbox.",
	})

	ProducerOutboxDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "producer_outbox_dropped_total",
		Help: "Total envelopes dropped because the outbox queue was full.",
	})

	ProducerBreakerOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "producer_breaker_open_total",
		Help: "Total times the producer's send circuit breaker tripped open.",
	})
)
