package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"orderbridge/contexts/order-broker/adapters/memory"
	"orderbridge/contexts/order-broker/application"
	domainerrors "orderbridge/contexts/order-broker/domain/errors"
	v1 "orderbridge/contracts/gen/events/v1"
)

func newService() application.Service {
	return application.Service{
		Repo:          memory.NewStore(),
		LeaseDuration: 5 * time.Minute,
		MaxRetries:    3,
		ShortBackoff:  30 * time.Second,
	}
}

func validEnvelope() v1.TradeEventEnvelope {
	return v1.TradeEventEnvelope{
		SourceID:  "mt4-ea-7",
		EventType: v1.EventPositionOpened,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Symbol:    "EURUSD",
		Volume:    "0.10",
	}
}

func TestIngestRejectsMissingFields(t *testing.T) {
	s := newService()
	envelope := validEnvelope()
	envelope.Symbol = ""

	_, _, _, err := s.Ingest(context.Background(), envelope)
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestIngestRejectsUnrecognisedEventType(t *testing.T) {
	s := newService()
	envelope := validEnvelope()
	envelope.EventType = "NOT_A_REAL_EVENT"

	_, _, _, err := s.Ingest(context.Background(), envelope)
	if !errors.Is(err, domainerrors.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestIngestRejectsUnparsableTimestamp(t *testing.T) {
	s := newService()
	envelope := validEnvelope()
	envelope.Timestamp = "not-a-timestamp"

	_, _, _, err := s.Ingest(context.Background(), envelope)
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestIngestThenClaimThenMarkDoneLifecycle(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, id, duplicate, err := s.Ingest(ctx, validEnvelope())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duplicate {
		t.Fatalf("expected first ingest to not be a duplicate")
	}

	views, err := s.Claim(ctx, 5, "consumer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 || views[0].ID != id {
		t.Fatalf("expected claimed event %s, got %+v", id, views)
	}

	transitioned, err := s.MarkDone(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !transitioned {
		t.Fatalf("expected mark_done to transition")
	}
}

func TestClaimRequiresConsumerID(t *testing.T) {
	s := newService()
	ctx := context.Background()
	if _, _, _, err := s.Ingest(ctx, validEnvelope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.Claim(ctx, 5, "  ")
	if !errors.Is(err, domainerrors.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestClaimClampsToHardCeiling(t *testing.T) {
	s := newService()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e := validEnvelope()
		e.SourceID = e.SourceID + string(rune('a'+i))
		if _, _, _, err := s.Ingest(ctx, e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	views, err := s.Claim(ctx, 10000, "consumer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected all 3 pending events claimed, got %d", len(views))
	}
}

func TestRetryBackoffDoublesUntilCapped(t *testing.T) {
	s := application.Service{InitialRetryDelay: 10 * time.Second, MaxRetryDelay: 80 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 80 * time.Second},
		{5, 80 * time.Second},
	}
	for _, c := range cases {
		got := s.RetryBackoff(c.attempt)
		if got != c.want {
			t.Fatalf("attempt %d: expected %v, got %v", c.attempt, c.want, got)
		}
	}
}

func TestIngestSourceIDBoundary(t *testing.T) {
	cases := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"at_limit", 64, false},
		{"over_limit", 65, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newService()
			envelope := validEnvelope()
			envelope.SourceID = strings.Repeat("a", c.length)

			_, _, _, err := s.Ingest(context.Background(), envelope)
			if c.wantErr && !errors.Is(err, domainerrors.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIngestCommentTruncatedNotRejected(t *testing.T) {
	cases := []struct {
		name   string
		length int
		want   int
	}{
		{"at_limit", 500, 500},
		{"over_limit", 501, 500},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := newService()
			envelope := validEnvelope()
			envelope.SourceID = envelope.SourceID + c.name
			envelope.Comment = strings.Repeat("c", c.length)

			input, id, _, err := s.Ingest(context.Background(), envelope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id == "" {
				t.Fatalf("expected an id")
			}
			if got := len(input.Payload["comment"]); got != c.want {
				t.Fatalf("expected comment length %d, got %d", c.want, got)
			}
		})
	}
}

func TestClaimZeroMaxCountYieldsEmpty(t *testing.T) {
	s := newService()
	ctx := context.Background()
	if _, _, _, err := s.Ingest(ctx, validEnvelope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views, err := s.Claim(ctx, 0, "consumer-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty claim for max_count=0, got %d", len(views))
	}
}

func TestIngestIsIdempotentAcrossSameSourceAndEventType(t *testing.T) {
	s := newService()
	ctx := context.Background()
	envelope := validEnvelope()

	_, firstID, _, err := s.Ingest(ctx, envelope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envelope.Comment = "a second delivery attempt with a different payload"
	_, secondID, duplicate, err := s.Ingest(ctx, envelope)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !duplicate || secondID != firstID {
		t.Fatalf("expected idempotent re-ingest to return the same id as a duplicate")
	}
}
