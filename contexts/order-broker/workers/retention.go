package workers

import (
	"context"
	"log/slog"
	"time"

	"orderbridge/contexts/order-broker/application"
)

// Retention periodically deletes done events past the retention window.
// Fallow events are never touched here; they stay visible until an
// operator clears them.
type Retention struct {
	Service   application.Service
	Interval  time.Duration
	Retention time.Duration
	Logger    *slog.Logger
}

func (r Retention) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	retention := r.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	logger := r.logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.Service.Cleanup(ctx, retention)
			if err != nil {
				logger.Error("retention cleanup failed",
					"event", "order_retention_cleanup_failed",
					"module", "order-broker",
					"layer", "worker",
					"error", err.Error(),
				)
				continue
			}
			if count > 0 {
				logger.Info("retention cleanup completed",
					"event", "order_retention_cleanup_completed",
					"module", "order-broker",
					"layer", "worker",
					"count", count,
				)
			}
		}
	}
}

func (r Retention) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
