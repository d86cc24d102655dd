package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"orderbridge/contexts/order-broker/domain/entities"
	domainerrors "orderbridge/contexts/order-broker/domain/errors"
	"orderbridge/contexts/order-broker/ports"
	v1 "orderbridge/contracts/gen/events/v1"
)

const (
	maxSourceIDLen  = 64
	maxEventTypeLen = 50
	maxSymbolLen    = 20
	maxCommentLen   = 500
	hardClaimCeiling = 100
)

// Service is the broker's storage-engine command surface. It validates input, then delegates to Repo.
type Service struct {
	Repo             ports.Repository
	Clock            ports.Clock
	IDGen            ports.IDGenerator
	LeaseDuration    time.Duration
	MaxRetries       int
	ShortBackoff     time.Duration
	InitialRetryDelay time.Duration
	MaxRetryDelay    time.Duration
	Logger           *slog.Logger
}

// Ingest validates and stores a producer-submitted event.
func (s Service) Ingest(ctx context.Context, envelope v1.TradeEventEnvelope) (ports.IngestInput, string, bool, error) {
	sourceID := sanitize(strings.TrimSpace(envelope.SourceID))
	eventType := sanitize(strings.TrimSpace(envelope.EventType))

	if sourceID == "" || eventType == "" || sanitize(strings.TrimSpace(envelope.Symbol)) == "" {
		return ports.IngestInput{}, "", false, domainerrors.ErrValidation
	}
	if len(sourceID) > maxSourceIDLen {
		return ports.IngestInput{}, "", false, domainerrors.ErrValidation
	}
	if len(eventType) > maxEventTypeLen || !v1.RecognisedEventTypes[eventType] {
		return ports.IngestInput{}, "", false, domainerrors.ErrUnknownType
	}

	ts, err := time.Parse(time.RFC3339Nano, envelope.Timestamp)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, envelope.Timestamp)
		if err != nil {
			return ports.IngestInput{}, "", false, domainerrors.ErrValidation
		}
	}

	capped := capEnvelope(envelope)
	capped.Symbol = truncate(sanitize(capped.Symbol), maxSymbolLen)

	input := ports.IngestInput{
		SourceID:  sourceID,
		EventType: eventType,
		Timestamp: ts.UTC(),
		Payload:   sanitizeFields(capped.PayloadFields()),
	}

	id, duplicate, err := s.Repo.Ingest(ctx, input)
	if err != nil {
		return ports.IngestInput{}, "", false, err
	}

	resolveLogger(s.Logger).Info("order event ingested",
		"event", "order_event_ingested",
		"module", "order-broker",
		"layer", "application",
		"order_id", id,
		"source_id", input.SourceID,
		"event_type", input.EventType,
		"duplicate", duplicate,
	)
	return input, id, duplicate, nil
}

// Claim returns up to maxCount claim-eligible events to consumerID.
func (s Service) Claim(ctx context.Context, maxCount int, consumerID string) ([]ports.ClaimedEventView, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	if maxCount > hardClaimCeiling {
		maxCount = hardClaimCeiling
	}
	consumerID = sanitize(strings.TrimSpace(consumerID))
	if consumerID == "" {
		return nil, domainerrors.ErrValidation
	}

	events, err := s.Repo.Claim(ctx, maxCount, consumerID, s.leaseDuration(), s.maxRetries())
	if err != nil {
		return nil, err
	}
	views := make([]ports.ClaimedEventView, 0, len(events))
	for _, e := range events {
		views = append(views, ports.ToClaimedEventView(e))
	}
	if len(views) > 0 {
		resolveLogger(s.Logger).Info("order events claimed",
			"event", "order_events_claimed",
			"module", "order-broker",
			"layer", "application",
			"consumer_id", consumerID,
			"count", len(views),
		)
	}
	return views, nil
}

// MarkDone acks an event.
func (s Service) MarkDone(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	transitioned, err := s.Repo.MarkDone(ctx, id)
	if err != nil {
		return false, err
	}
	if transitioned {
		resolveLogger(s.Logger).Info("order event processed",
			"event", "order_event_processed",
			"module", "order-broker",
			"layer", "application",
			"order_id", id,
		)
	}
	return transitioned, nil
}

// ScheduleRetry requeues an event after delay. A zero delay is the
// operator-triggered "retry now" path.
func (s Service) ScheduleRetry(ctx context.Context, id string, delay time.Duration) (bool, error) {
	if delay < 0 {
		delay = 0
	}
	return s.Repo.ScheduleRetry(ctx, strings.TrimSpace(id), delay)
}

// RetryBackoff returns the exponential delay for the nth scheduled retry,
// bounded by MaxRetryDelay.
func (s Service) RetryBackoff(attempt int) time.Duration {
	initial := s.InitialRetryDelay
	if initial <= 0 {
		initial = 10 * time.Second
	}
	max := s.MaxRetryDelay
	if max <= 0 {
		max = 5 * time.Minute
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}

// ReapStale moves expired leases back to pending or fallow.
func (s Service) ReapStale(ctx context.Context) (int, error) {
	count, err := s.Repo.ReapStale(ctx, s.leaseDuration(), s.maxRetries(), s.shortBackoff())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		resolveLogger(s.Logger).Info("stale leases reaped",
			"event", "order_stale_leases_reaped",
			"module", "order-broker",
			"layer", "worker",
			"count", count,
		)
	}
	return count, nil
}

// Cleanup deletes retired done rows.
func (s Service) Cleanup(ctx context.Context, retention time.Duration) (int, error) {
	return s.Repo.Cleanup(ctx, retention)
}

// Get returns a single event, widened to surface State and RetryCount so an
// operator can see claim/ack status without reading storage directly.
func (s Service) Get(ctx context.Context, id string) (ports.ClaimedEventView, error) {
	e, err := s.Repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return ports.ClaimedEventView{}, err
	}
	return ports.ToClaimedEventView(e), nil
}

// ListStats backs GET /stats.
func (s Service) ListStats(ctx context.Context) (ports.Stats, error) {
	return s.Repo.ListStats(ctx, s.maxRetries())
}

// ListFallow backs GET /orders/failed.
func (s Service) ListFallow(ctx context.Context, limit int) ([]ports.ClaimedEventView, error) {
	events, err := s.Repo.ListFallow(ctx, s.maxRetries(), limit)
	if err != nil {
		return nil, err
	}
	return toViews(events), nil
}

// ListPending backs GET /queue.
func (s Service) ListPending(ctx context.Context, limit int) ([]ports.ClaimedEventView, error) {
	events, err := s.Repo.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toViews(events), nil
}

// SweepFailed runs a full reaper pass on demand: the same ReapStale call the
// background reaper makes, so only leases older than the lease duration are
// released (under-budget events back to pending, exhausted ones to fallow).
func (s Service) SweepFailed(ctx context.Context) (int, error) {
	return s.ReapStale(ctx)
}

func toViews(events []entities.Event) []ports.ClaimedEventView {
	views := make([]ports.ClaimedEventView, 0, len(events))
	for _, e := range events {
		views = append(views, ports.ToClaimedEventView(e))
	}
	return views
}

func (s Service) leaseDuration() time.Duration {
	if s.LeaseDuration <= 0 {
		return 5 * time.Minute
	}
	return s.LeaseDuration
}

func (s Service) maxRetries() int {
	if s.MaxRetries <= 0 {
		return 3
	}
	return s.MaxRetries
}

func (s Service) shortBackoff() time.Duration {
	if s.ShortBackoff <= 0 {
		return 30 * time.Second
	}
	return s.ShortBackoff
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
