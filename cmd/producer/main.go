// Package main is the producer process: it runs the durable outbox's retry
// loop and a synthetic trade-event source, plus a minimal /health endpoint
// exposing outbox introspection (queue depth, drop count, breaker state).
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"orderbridge/internal/app/bootstrap"
	v1 "orderbridge/contracts/gen/events/v1"
)

func main() {
	log.Println("orderbridge producer starting")
	app, err := bootstrap.BuildProducer()
	if err != nil {
		log.Fatalf("bootstrap producer failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go serveHealth(app)
	go runSyntheticEventSource(ctx, app)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("orderbridge producer stopped with error: %v", err)
	}
}

// serveHealth exposes the outbox's own introspection endpoint: queue depth,
// the drop counter, and breaker state.
func serveHealth(app *bootstrapApp) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		stats := app.Outbox().Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"queue_depth":   stats.QueueDepth,
			"dropped_total": stats.DroppedTotal,
			"breaker_state": stats.BreakerState,
		})
	})
	srv := &http.Server{Addr: ":5100", Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("producer health server stopped: %v", err)
	}
}

type bootstrapApp = bootstrap.ProducerApp

// runSyntheticEventSource stands in for the real trading-automation event
// source: it periodically hands the outbox a
// synthetic envelope so the outbox/breaker/replay machinery has something
// to exercise end to end without a live MT4/MT5 bridge attached.
func runSyntheticEventSource(ctx context.Context, app *bootstrap.ProducerApp) {
	var counter uint64
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := atomic.AddUint64(&counter, 1)
			envelope := v1.TradeEventEnvelope{
				SourceID:  syntheticSourceID(n),
				EventType: v1.EventPositionOpened,
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Symbol:    "EURUSD",
				Volume:    "0.10",
			}
			if err := app.Outbox().Enqueue(ctx, envelope); err != nil {
				log.Printf("synthetic event enqueue failed: %v", err)
			}
		}
	}
}

func syntheticSourceID(n uint64) string {
	return "synthetic-" + time.Now().UTC().Format("20060102T150405") + "-" + itoa(n)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
