package memory

import (
	"context"
	"testing"
	"time"

	"orderbridge/contexts/order-broker/domain/entities"
	"orderbridge/contexts/order-broker/ports"
)

func TestIngestIsIdempotentOnSourceAndEventType(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	input := ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()}

	id1, dup1, err := store.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup1 {
		t.Fatalf("expected first ingest to not be a duplicate")
	}

	id2, dup2, err := store.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dup2 {
		t.Fatalf("expected second ingest to be a duplicate")
	}
	if id1 != id2 {
		t.Fatalf("expected same id on duplicate ingest, got %s and %s", id1, id2)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected exactly one stored row, got %d", len(store.events))
	}
}

func TestClaimReturnsFIFOByTimestampAndExcludesOverlap(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)

	idA, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: base})
	idB, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "B", EventType: "POSITION_OPENED", Timestamp: base.Add(time.Second)})
	idC, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "C", EventType: "POSITION_OPENED", Timestamp: base.Add(2 * time.Second)})

	first, err := store.Claim(ctx, 2, "c1", 5*time.Minute, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 || first[0].ID != idA || first[1].ID != idB {
		t.Fatalf("expected FIFO [A,B], got %+v", first)
	}

	second, err := store.Claim(ctx, 10, "c2", 5*time.Minute, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 1 || second[0].ID != idC {
		t.Fatalf("expected second claim to return only C, got %+v", second)
	}
}

func TestMarkDoneIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	id, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()})

	first, err := store.MarkDone(ctx, id)
	if err != nil || !first {
		t.Fatalf("expected first mark_done to transition, got %v, %v", first, err)
	}
	second, err := store.MarkDone(ctx, id)
	if err != nil || second {
		t.Fatalf("expected second mark_done to be a no-op, got %v, %v", second, err)
	}

	event, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.State != entities.StateDone {
		t.Fatalf("expected state done, got %s", event.State)
	}
}

func TestReapStaleMovesToFallowAtMaxRetries(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	id, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()})

	if _, err := store.Claim(ctx, 1, "c1", time.Millisecond, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.mu.Lock()
	e := store.events[id]
	past := time.Now().UTC().Add(-time.Hour)
	e.ClaimedAt = &past
	e.RetryCount = 3
	store.events[id] = e
	store.mu.Unlock()

	count, err := store.ReapStale(ctx, time.Minute, 3, 30*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event reaped, got %d", count)
	}

	event, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !event.Fallow(3) {
		t.Fatalf("expected event to be fallow, got state=%s retry_count=%d", event.State, event.RetryCount)
	}

	claimed, err := store.Claim(ctx, 10, "c2", time.Minute, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range claimed {
		if c.ID == id {
			t.Fatalf("fallow event must not be returned by claim")
		}
	}
}

func TestListStatsCountsScheduledSeparatelyFromFallow(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	scheduledID, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()})
	fallowID, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "B", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()})

	store.mu.Lock()
	future := time.Now().UTC().Add(time.Hour)
	scheduled := store.events[scheduledID]
	scheduled.NextRetryAt = &future
	store.events[scheduledID] = scheduled

	fallow := store.events[fallowID]
	fallow.RetryCount = 3
	store.events[fallowID] = fallow
	store.mu.Unlock()

	stats, err := store.ListStats(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Scheduled != 1 {
		t.Fatalf("expected 1 scheduled event, got %d", stats.Scheduled)
	}
	if stats.Fallow != 1 {
		t.Fatalf("expected 1 fallow event, got %d", stats.Fallow)
	}
}

func TestCleanupDeletesOnlyRetiredDoneRows(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	id, _, _ := store.Ingest(ctx, ports.IngestInput{SourceID: "A", EventType: "POSITION_OPENED", Timestamp: time.Now().UTC()})
	if _, err := store.MarkDone(ctx, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.mu.Lock()
	e := store.events[id]
	old := time.Now().UTC().Add(-2 * time.Hour)
	e.ProcessedAt = &old
	store.events[id] = e
	store.mu.Unlock()

	count, err := store.Cleanup(ctx, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row cleaned up, got %d", count)
	}
	if _, err := store.Get(ctx, id); err == nil {
		t.Fatalf("expected event to be gone after cleanup")
	}
}
