package ports

import (
	"context"

	"orderbridge/contexts/ticket-mapping/domain/entities"
)

// PutMappingInput is the upsert payload for put_mapping.
type PutMappingInput struct {
	SourceTicket string
	SlaveTicket  string
	Symbol       string
	Size         string
}

// Repository is the ticket mapping storage contract. The memory store has
// its own lock, separate from the order-broker store; the gorm store shares
// the broker's single sqlite connection, so there its writes serialise with
// order-broker event writes.
type Repository interface {
	// PutMapping upserts on SourceTicket; last writer wins.
	PutMapping(ctx context.Context, input PutMappingInput) error

	// GetMapping returns ErrNotFound if no row exists for sourceTicket.
	GetMapping(ctx context.Context, sourceTicket string) (entities.Mapping, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}
