// Package workers holds the broker's background loops: stale-lease reaping,
// retention cleanup, and the metrics sampler. Each loop blocks on
// Start until its context is cancelled, ticking on a fixed interval.
package workers

import (
	"context"
	"log/slog"
	"time"

	"orderbridge/contexts/order-broker/application"
)

// Reaper periodically releases expired claim leases back to pending (or
// fallow, once retry_count reaches max_retries).
type Reaper struct {
	Service  application.Service
	Interval time.Duration
	Logger   *slog.Logger
}

func (r Reaper) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := r.logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.Service.ReapStale(ctx)
			if err != nil {
				logger.Error("stale lease reap failed",
					"event", "order_stale_reap_failed",
					"module", "order-broker",
					"layer", "worker",
					"error", err.Error(),
				)
				continue
			}
			if count > 0 {
				logger.Info("stale lease reap completed",
					"event", "order_stale_reap_completed",
					"module", "order-broker",
					"layer", "worker",
					"count", count,
				)
			}
		}
	}
}

func (r Reaper) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
