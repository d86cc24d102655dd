package application_test

import (
	"context"
	"errors"
	"testing"

	"orderbridge/contexts/ticket-mapping/adapters/memory"
	"orderbridge/contexts/ticket-mapping/application"
	domainerrors "orderbridge/contexts/ticket-mapping/domain/errors"
	"orderbridge/contexts/ticket-mapping/ports"
)

func TestPutMappingThenGetMapping(t *testing.T) {
	s := application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	err := s.PutMapping(ctx, ports.PutMappingInput{
		SourceTicket: "SRC-1",
		SlaveTicket:  "SLV-1",
		Symbol:       "EURUSD",
		Size:         "0.10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapping, err := s.GetMapping(ctx, "SRC-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping.SlaveTicket != "SLV-1" {
		t.Fatalf("expected slave ticket SLV-1, got %s", mapping.SlaveTicket)
	}
}

func TestPutMappingUpsertsLastWriterWins(t *testing.T) {
	s := application.Service{Repo: memory.NewStore()}
	ctx := context.Background()

	if err := s.PutMapping(ctx, ports.PutMappingInput{SourceTicket: "SRC-1", SlaveTicket: "SLV-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.PutMapping(ctx, ports.PutMappingInput{SourceTicket: "SRC-1", SlaveTicket: "SLV-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mapping, err := s.GetMapping(ctx, "SRC-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mapping.SlaveTicket != "SLV-2" {
		t.Fatalf("expected last writer to win with SLV-2, got %s", mapping.SlaveTicket)
	}
}

func TestGetMappingNotFound(t *testing.T) {
	s := application.Service{Repo: memory.NewStore()}
	_, err := s.GetMapping(context.Background(), "unknown")
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutMappingRejectsMissingFields(t *testing.T) {
	s := application.Service{Repo: memory.NewStore()}
	err := s.PutMapping(context.Background(), ports.PutMappingInput{SourceTicket: "", SlaveTicket: "SLV-1"})
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
