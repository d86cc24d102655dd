package application

import (
	"context"
	"log/slog"
	"strings"

	"orderbridge/contexts/ticket-mapping/domain/entities"
	domainerrors "orderbridge/contexts/ticket-mapping/domain/errors"
	"orderbridge/contexts/ticket-mapping/ports"
)

const maxFieldLen = 64

// Service is the ticket mapping substore's command surface. It is
// read-only for everyone except the consumer that owns put_mapping.
type Service struct {
	Repo   ports.Repository
	Logger *slog.Logger
}

// PutMapping upserts on source_ticket; last writer wins.
func (s Service) PutMapping(ctx context.Context, input ports.PutMappingInput) error {
	sourceTicket := strings.TrimSpace(input.SourceTicket)
	slaveTicket := strings.TrimSpace(input.SlaveTicket)
	if sourceTicket == "" || slaveTicket == "" {
		return domainerrors.ErrValidation
	}
	if len(sourceTicket) > maxFieldLen || len(slaveTicket) > maxFieldLen {
		return domainerrors.ErrValidation
	}

	err := s.Repo.PutMapping(ctx, ports.PutMappingInput{
		SourceTicket: sourceTicket,
		SlaveTicket:  slaveTicket,
		Symbol:       strings.TrimSpace(input.Symbol),
		Size:         strings.TrimSpace(input.Size),
	})
	if err != nil {
		return err
	}

	resolveLogger(s.Logger).Info("ticket mapping upserted",
		"event", "ticket_mapping_upserted",
		"module", "ticket-mapping",
		"layer", "application",
		"source_ticket", sourceTicket,
	)
	return nil
}

func (s Service) GetMapping(ctx context.Context, sourceTicket string) (entities.Mapping, error) {
	return s.Repo.GetMapping(ctx, strings.TrimSpace(sourceTicket))
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
