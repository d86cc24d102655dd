package workers

import (
	"context"
	"log/slog"
	"time"

	"orderbridge/contexts/order-broker/application"
	"orderbridge/internal/platform/observability"
)

// MetricsSampler periodically snapshots GET /stats into the orders_pending
// and retry_queue_size gauges, since neither is cheap to keep live-updated
// on every write under the serialised-writer storage engine.
type MetricsSampler struct {
	Service  application.Service
	Interval time.Duration
	Logger   *slog.Logger

	lastFallow int
}

func (m *MetricsSampler) Start(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	logger := m.logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := m.Service.ListStats(ctx)
			if err != nil {
				logger.Error("metrics sample failed",
					"event", "order_metrics_sample_failed",
					"module", "order-broker",
					"layer", "worker",
					"error", err.Error(),
				)
				continue
			}
			observability.OrdersPending.Set(float64(stats.Pending))
			observability.RetryQueueSize.Set(float64(stats.Scheduled))
			if delta := stats.Fallow - m.lastFallow; delta > 0 {
				observability.OrdersFailedTotal.Add(float64(delta))
			}
			m.lastFallow = stats.Fallow
		}
	}
}

func (m *MetricsSampler) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
