// Package bootstrap is the composition root for both processes: it wires
// configuration, storage, modules, background workers, and the HTTP server
// (or producer outbox) together, keeping module code itself infra-agnostic.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	orderbroker "orderbridge/contexts/order-broker"
	brokergorm "orderbridge/contexts/order-broker/adapters/gorm"
	brokermemory "orderbridge/contexts/order-broker/adapters/memory"
	orderworkers "orderbridge/contexts/order-broker/workers"
	ticketmapping "orderbridge/contexts/ticket-mapping"
	ticketgorm "orderbridge/contexts/ticket-mapping/adapters/gorm"
	"orderbridge/internal/platform/config"
	"orderbridge/internal/platform/db"
	"orderbridge/internal/platform/httpserver"
	"orderbridge/producer"
)

const shutdownGrace = 10 * time.Second

// BrokerApp owns the HTTP server and the three background loops that make
// up the broker process.
type BrokerApp struct {
	server  *httpserver.Server
	reaper  *orderworkers.Reaper
	retain  *orderworkers.Retention
	metrics *orderworkers.MetricsSampler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// BuildBroker wires configuration, the durable gorm/sqlite storage engine,
// both modules, and the HTTP surface together.
func BuildBroker() (*BrokerApp, error) {
	cfg, err := config.LoadBroker()
	if err != nil {
		return nil, fmt.Errorf("load broker config: %w", err)
	}
	logger := slog.Default()

	gormDB, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	orderRepo := brokergorm.NewRepository(gormDB)
	if err := orderRepo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate order-broker schema: %w", err)
	}
	ticketRepo := ticketgorm.NewRepository(gormDB)
	if err := ticketRepo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate ticket-mapping schema: %w", err)
	}

	orderModule := orderbroker.NewModule(orderbroker.Dependencies{
		Repository:        orderRepo,
		Clock:             brokermemory.SystemClock{},
		IDGenerator:       brokermemory.UUIDGenerator{},
		LeaseDuration:     cfg.LeaseDuration,
		MaxRetries:        cfg.MaxRetries,
		ShortBackoff:      30 * time.Second,
		InitialRetryDelay: cfg.InitialRetryDelay,
		MaxRetryDelay:     cfg.MaxRetryDelay,
		Logger:            logger,
	})
	ticketModule := ticketmapping.NewModule(ticketmapping.Dependencies{
		Repository: ticketRepo,
		Logger:     logger,
	})

	server := httpserver.New(orderModule, ticketModule, httpserver.PrefilterConfig{
		APIKey:             cfg.APIKey,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitWhitelist: cfg.RateLimitWhitelist,
	}, logger, cfg.ListenAddress, cfg.MaxPayloadDepth)

	return &BrokerApp{
		server: server,
		reaper: &orderworkers.Reaper{
			Service:  orderModule.Service,
			Interval: cfg.ReaperInterval,
			Logger:   logger,
		},
		retain: &orderworkers.Retention{
			Service:   orderModule.Service,
			Interval:  cfg.CleanupInterval,
			Retention: cfg.MaxOrderAge,
			Logger:    logger,
		},
		metrics: &orderworkers.MetricsSampler{
			Service: orderModule.Service,
			Logger:  logger,
		},
		logger: logger,
	}, nil
}

// Run starts the HTTP server and all background loops and blocks until ctx
// is cancelled or the HTTP server fails.
func (a *BrokerApp) Run(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go a.reaper.Start(workerCtx)
	go a.retain.Start(workerCtx)
	go a.metrics.Start(workerCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case <-ctx.Done():
		return a.Close()
	case err := <-errCh:
		cancel()
		return err
	}
}

// Close shuts the HTTP server and background loops down.
func (a *BrokerApp) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

// ProducerApp owns the durable outbox and its retry loop.
type ProducerApp struct {
	outbox *producer.Outbox
	cancel context.CancelFunc
}

// BuildProducer wires producer configuration into a durable outbox.
func BuildProducer() (*ProducerApp, error) {
	cfg, err := config.LoadProducer()
	if err != nil {
		return nil, fmt.Errorf("load producer config: %w", err)
	}
	logger := slog.Default()

	outbox, err := producer.NewOutbox(producer.Config{
		BridgeURL:               cfg.BridgeURL,
		APIKey:                  cfg.APIKey,
		MaxQueueSize:            cfg.MaxQueueSize,
		MaxFileSizeMB:           cfg.MaxFileSizeMB,
		RetainedBackups:         cfg.RetainedBackups,
		SendTimeout:             cfg.SendTimeout,
		RetryInterval:           cfg.RetryInterval,
		CircuitFailureThreshold: cfg.CircuitFailureThreshold,
		CircuitCooldown:         cfg.CircuitCooldown,
		OutboxLogPath:           cfg.OutboxLogPath,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build outbox: %w", err)
	}

	return &ProducerApp{outbox: outbox}, nil
}

// Outbox exposes the underlying outbox so the event source can enqueue
// envelopes and the process can serve its own /health introspection.
func (a *ProducerApp) Outbox() *producer.Outbox {
	return a.outbox
}

// Run starts the outbox retry loop and blocks until ctx is cancelled.
func (a *ProducerApp) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.outbox.Start(runCtx)
	return nil
}

// Close stops the outbox retry loop.
func (a *ProducerApp) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}
