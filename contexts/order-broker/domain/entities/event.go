package entities

import "time"

// State is the event's position in the claim/ack lifecycle.
type State string

const (
	StatePending State = "pending"
	StateClaimed State = "claimed"
	StateDone    State = "done"
)

// Event is a single trade-lifecycle message. The broker never interprets
// Payload; it is stored and returned verbatim.
type Event struct {
	ID          string
	SourceID    string
	EventType   string
	Timestamp   time.Time
	Payload     map[string]string
	CreatedAt   time.Time
	State       State
	ClaimOwner  string
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
	RetryCount  int
	NextRetryAt *time.Time
	LastRetryAt *time.Time
}

// Fallow reports whether the event is pending but excluded from future
// claims because it exhausted its retry budget.
func (e Event) Fallow(maxRetries int) bool {
	return e.State == StatePending && e.RetryCount >= maxRetries
}

// ClaimEligible reports whether the event can be returned by claim() right
// now: pending, not fallow, and not waiting out a scheduled retry delay.
func (e Event) ClaimEligible(maxRetries int, now time.Time) bool {
	if e.State != StatePending {
		return false
	}
	if e.RetryCount >= maxRetries {
		return false
	}
	if e.NextRetryAt != nil && e.NextRetryAt.After(now) {
		return false
	}
	return true
}

// Scheduled reports whether the event is pending, still within its retry
// budget, and waiting out a future NextRetryAt — claim-ineligible for a
// reason distinct from having exhausted retries.
func (e Event) Scheduled(maxRetries int, now time.Time) bool {
	if e.State != StatePending || e.RetryCount >= maxRetries {
		return false
	}
	return e.NextRetryAt != nil && e.NextRetryAt.After(now)
}
