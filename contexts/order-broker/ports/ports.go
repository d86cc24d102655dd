package ports

import (
	"context"
	"time"

	"orderbridge/contexts/order-broker/domain/entities"
)

// IngestInput is the producer-supplied half of an event; the broker
// assigns everything else.
type IngestInput struct {
	SourceID  string
	EventType string
	Timestamp time.Time
	Payload   map[string]string
}

// Stats is the read model backing GET /stats.
type Stats struct {
	Total       int
	Pending     int
	Done        int
	Fallow      int
	Scheduled   int
	RecentCount int
}

// Repository is the broker storage engine contract. Implementations must
// guarantee exactly-once ingest, exclusive claims, and monotonic retry
// scheduling; the reference implementation serialises writers with a
// single mutex.
type Repository interface {
	// Ingest returns (id, duplicate, error). duplicate is true when the
	// (source_id, event_type) pair already existed and no row was modified.
	Ingest(ctx context.Context, input IngestInput) (id string, duplicate bool, err error)

	// Claim atomically hands up to maxCount pending, claim-eligible events
	// to consumerID, ordered by Timestamp ascending. Events at
	// or past maxRetries are excluded.
	Claim(ctx context.Context, maxCount int, consumerID string, leaseDuration time.Duration, maxRetries int) ([]entities.Event, error)

	// MarkDone transitions the event to done. Returns false if it was
	// already done or does not exist.
	MarkDone(ctx context.Context, id string) (bool, error)

	// ScheduleRetry returns a claimed/pending event to pending with a
	// future NextRetryAt. Returns false if already done.
	ScheduleRetry(ctx context.Context, id string, delay time.Duration) (bool, error)

	// ReapStale releases leases older than leaseDuration. Events under
	// maxRetries go back to pending with a short backoff; events at or
	// past maxRetries become fallow.
	ReapStale(ctx context.Context, leaseDuration time.Duration, maxRetries int, shortBackoff time.Duration) (count int, err error)

	// Cleanup deletes done rows older than retention.
	Cleanup(ctx context.Context, retention time.Duration) (count int, err error)

	// Get returns a single event by id, or ErrNotFound.
	Get(ctx context.Context, id string) (entities.Event, error)

	// ListStats computes the aggregate read model behind GET /stats.
	ListStats(ctx context.Context, maxRetries int) (Stats, error)

	// ListFallow returns pending events with retry_count >= maxRetries, for
	// operator visibility.
	ListFallow(ctx context.Context, maxRetries int, limit int) ([]entities.Event, error)

	// ListPending returns a page of pending events for GET /queue.
	ListPending(ctx context.Context, limit int) ([]entities.Event, error)

	// Migrate performs additive, idempotent schema setup at startup.
	Migrate(ctx context.Context) error

	// Ping verifies the storage engine is reachable, for GET /health.
	Ping(ctx context.Context) error
}

// ClaimedEventView is the read model returned to callers of Claim/Get/List*.
// It widens the source's GetOrder response to include State and
// RetryCount, which operators need to distinguish pending/fallow/claimed.
type ClaimedEventView struct {
	ID          string
	SourceID    string
	EventType   string
	Timestamp   time.Time
	Payload     map[string]string
	CreatedAt   time.Time
	State       entities.State
	ClaimOwner  string
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
	RetryCount  int
	NextRetryAt *time.Time
	LastRetryAt *time.Time
}

// ToClaimedEventView projects a domain Event into its read model.
func ToClaimedEventView(e entities.Event) ClaimedEventView {
	return ClaimedEventView{
		ID:          e.ID,
		SourceID:    e.SourceID,
		EventType:   e.EventType,
		Timestamp:   e.Timestamp,
		Payload:     e.Payload,
		CreatedAt:   e.CreatedAt,
		State:       e.State,
		ClaimOwner:  e.ClaimOwner,
		ClaimedAt:   e.ClaimedAt,
		ProcessedAt: e.ProcessedAt,
		RetryCount:  e.RetryCount,
		NextRetryAt: e.NextRetryAt,
		LastRetryAt: e.LastRetryAt,
	}
}

// Clock is the time source, overridable in tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator assigns opaque event ids.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
