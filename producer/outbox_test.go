package producer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	v1 "orderbridge/contracts/gen/events/v1"
)

func testEnvelope(sourceID string) v1.TradeEventEnvelope {
	return v1.TradeEventEnvelope{
		SourceID:  sourceID,
		EventType: v1.EventPositionOpened,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Symbol:    "EURUSD",
		Volume:    "0.10",
	}
}

func TestEnqueuePersistsToFileLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outbox.log")

	o, err := NewOutbox(Config{
		BridgeURL:     "http://127.0.0.1:0",
		OutboxLogPath: path,
		MaxQueueSize:  10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Enqueue(context.Background(), testEnvelope("mt4-ea-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected outbox.log to contain the enqueued entry")
	}
	if stats := o.Stats(); stats.QueueDepth != 1 {
		t.Fatalf("expected queue depth 1, got %d", stats.QueueDepth)
	}
}

func TestEnqueueDropsOldestAtCapacity(t *testing.T) {
	dir := t.TempDir()
	o, err := NewOutbox(Config{
		BridgeURL:     "http://127.0.0.1:0",
		OutboxLogPath: filepath.Join(dir, "outbox.log"),
		MaxQueueSize:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	_ = o.Enqueue(ctx, testEnvelope("mt4-ea-1"))
	_ = o.Enqueue(ctx, testEnvelope("mt4-ea-2"))
	_ = o.Enqueue(ctx, testEnvelope("mt4-ea-3"))

	stats := o.Stats()
	if stats.QueueDepth != 2 {
		t.Fatalf("expected queue depth capped at 2, got %d", stats.QueueDepth)
	}
	if stats.DroppedTotal != 1 {
		t.Fatalf("expected 1 dropped envelope, got %d", stats.DroppedTotal)
	}
}

func TestStartDeliversQueuedEnvelopeOnSuccess(t *testing.T) {
	var received int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received++
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	dir := t.TempDir()
	o, err := NewOutbox(Config{
		BridgeURL:     server.URL,
		OutboxLogPath: filepath.Join(dir, "outbox.log"),
		MaxQueueSize:  10,
		RetryInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.Enqueue(context.Background(), testEnvelope("mt4-ea-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go o.Start(ctx)

	deadline := time.After(900 * time.Millisecond)
	for {
		if o.Stats().QueueDepth == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for outbox to drain, stats=%+v", o.Stats())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if received == 0 {
		t.Fatalf("expected the broker stub to receive at least one request")
	}
}

func TestFileLogLoadSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "outbox.log")
	valid, err := json.Marshal(queuedEnvelope{Envelope: testEnvelope("mt4-ea-1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := string(valid) + "\n" + "{not json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log := newFileLog(path, 100, 10, nil)
	entries, err := log.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 valid entry after skipping malformed line, got %d", len(entries))
	}
}
