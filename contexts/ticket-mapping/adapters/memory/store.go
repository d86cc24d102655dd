// Package memory is the in-memory ticket mapping store, backing tests
// through NewInMemoryModule.
package memory

import (
	"context"
	"sync"
	"time"

	"orderbridge/contexts/ticket-mapping/domain/entities"
	domainerrors "orderbridge/contexts/ticket-mapping/domain/errors"
	"orderbridge/contexts/ticket-mapping/ports"
)

type Store struct {
	mu       sync.Mutex
	mappings map[string]entities.Mapping
}

func NewStore() *Store {
	return &Store{mappings: make(map[string]entities.Mapping)}
}

func (s *Store) PutMapping(_ context.Context, input ports.PutMappingInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[input.SourceTicket] = entities.Mapping{
		SourceTicket: input.SourceTicket,
		SlaveTicket:  input.SlaveTicket,
		Symbol:       input.Symbol,
		Size:         input.Size,
		UpdatedAt:    time.Now().UTC(),
	}
	return nil
}

func (s *Store) GetMapping(_ context.Context, sourceTicket string) (entities.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[sourceTicket]
	if !ok {
		return entities.Mapping{}, domainerrors.ErrNotFound
	}
	return m, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
