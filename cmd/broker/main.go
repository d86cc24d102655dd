// Package main is the order-broker process.
//
// @title Order Bridge API
// @version 1.0
// @description Durable FIFO order broker and ticket-mapping substore.
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"orderbridge/internal/app/bootstrap"
)

func main() {
	log.Println("orderbridge broker starting")
	app, err := bootstrap.BuildBroker()
	if err != nil {
		log.Fatalf("bootstrap broker failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("orderbridge broker stopped with error: %v", err)
	}
}
