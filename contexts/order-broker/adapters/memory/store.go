// Package memory is the reference storage engine: a single mutex serialises
// every writer, the simplest correct design for a single-broker deployment.
// It backs tests through NewInMemoryModule; the bootstrap wires the gorm
// store instead.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"orderbridge/contexts/order-broker/domain/entities"
	domainerrors "orderbridge/contexts/order-broker/domain/errors"
	"orderbridge/contexts/order-broker/ports"
)

type Store struct {
	mu sync.Mutex

	events  map[string]entities.Event
	dedup   map[string]string // (source_id, event_type) -> id
	seq     []string          // insertion order, stable tiebreak for equal timestamps
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]entities.Event),
		dedup:  make(map[string]string),
	}
}

func dedupKey(sourceID, eventType string) string {
	return sourceID + "\x00" + eventType
}

func (s *Store) Ingest(_ context.Context, input ports.IngestInput) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(input.SourceID, input.EventType)
	if existingID, ok := s.dedup[key]; ok {
		return existingID, true, nil
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	s.events[id] = entities.Event{
		ID:        id,
		SourceID:  input.SourceID,
		EventType: input.EventType,
		Timestamp: input.Timestamp,
		Payload:   input.Payload,
		CreatedAt: now,
		State:     entities.StatePending,
	}
	s.dedup[key] = id
	s.seq = append(s.seq, id)
	return id, false, nil
}

func (s *Store) Claim(_ context.Context, maxCount int, consumerID string, leaseDuration time.Duration, maxRetries int) ([]entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	candidates := make([]entities.Event, 0, maxCount)
	for _, id := range s.seq {
		e := s.events[id]
		if !e.ClaimEligible(maxRetries, now) {
			continue
		}
		candidates = append(candidates, e)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.Before(candidates[j].Timestamp)
	})

	if len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}

	claimed := make([]entities.Event, 0, len(candidates))
	for _, c := range candidates {
		e := s.events[c.ID]
		e.State = entities.StateClaimed
		e.ClaimOwner = consumerID
		claimedAt := now
		e.ClaimedAt = &claimedAt
		s.events[e.ID] = e
		claimed = append(claimed, e)
	}
	_ = leaseDuration // lease expiry is enforced by ReapStale, not stored separately
	return claimed, nil
}

func (s *Store) MarkDone(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return false, nil
	}
	if e.State == entities.StateDone {
		return false, nil
	}
	now := time.Now().UTC()
	e.State = entities.StateDone
	e.ProcessedAt = &now
	e.ClaimOwner = ""
	e.NextRetryAt = nil
	s.events[id] = e
	return true, nil
}

func (s *Store) ScheduleRetry(_ context.Context, id string, delay time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return false, nil
	}
	if e.State == entities.StateDone {
		return false, nil
	}
	now := time.Now().UTC()
	nextRetry := now.Add(delay)
	e.State = entities.StatePending
	e.NextRetryAt = &nextRetry
	e.RetryCount++
	e.LastRetryAt = &now
	e.ClaimOwner = ""
	s.events[id] = e
	return true, nil
}

func (s *Store) ReapStale(_ context.Context, leaseDuration time.Duration, maxRetries int, shortBackoff time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for _, id := range s.seq {
		e := s.events[id]
		if e.State != entities.StateClaimed {
			continue
		}
		if e.ClaimedAt == nil || !e.ClaimedAt.Before(now.Add(-leaseDuration)) {
			continue
		}

		e.ClaimOwner = ""
		e.State = entities.StatePending
		if e.RetryCount < maxRetries {
			e.RetryCount++
			nextRetry := now.Add(shortBackoff)
			e.NextRetryAt = &nextRetry
		} else {
			// fallow: excluded from claims by ClaimEligible/the Claim query,
			// never auto-deleted.
			e.NextRetryAt = nil
		}
		s.events[id] = e
		count++
	}
	return count, nil
}

func (s *Store) Cleanup(_ context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cutoff := now.Add(-retention)
	count := 0
	remaining := s.seq[:0:0]
	for _, id := range s.seq {
		e := s.events[id]
		if e.State == entities.StateDone && e.ProcessedAt != nil && e.ProcessedAt.Before(cutoff) {
			delete(s.events, id)
			delete(s.dedup, dedupKey(e.SourceID, e.EventType))
			count++
			continue
		}
		remaining = append(remaining, id)
	}
	s.seq = remaining
	return count, nil
}

func (s *Store) Get(_ context.Context, id string) (entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[strings.TrimSpace(id)]
	if !ok {
		return entities.Event{}, domainerrors.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListStats(_ context.Context, maxRetries int) (ports.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := ports.Stats{}
	now := time.Now().UTC()
	cutoff := now.Add(-5 * time.Minute)
	for _, id := range s.seq {
		e := s.events[id]
		stats.Total++
		switch e.State {
		case entities.StatePending:
			switch {
			case e.Fallow(maxRetries):
				stats.Fallow++
			case e.Scheduled(maxRetries, now):
				stats.Scheduled++
				stats.Pending++
			default:
				stats.Pending++
			}
		case entities.StateDone:
			stats.Done++
		}
		if !e.Timestamp.Before(cutoff) {
			stats.RecentCount++
		}
	}
	return stats, nil
}

func (s *Store) ListFallow(_ context.Context, maxRetries int, limit int) ([]entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(limit, func(e entities.Event) bool {
		return e.Fallow(maxRetries)
	}), nil
}

func (s *Store) ListPending(_ context.Context, limit int) ([]entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(limit, func(e entities.Event) bool {
		return e.State == entities.StatePending
	}), nil
}

// filterLocked must be called with mu held.
func (s *Store) filterLocked(limit int, predicate func(entities.Event) bool) []entities.Event {
	if limit <= 0 {
		limit = 100
	}
	out := make([]entities.Event, 0, limit)
	for _, id := range s.seq {
		e := s.events[id]
		if !predicate(e) {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) { return uuid.NewString(), nil }
