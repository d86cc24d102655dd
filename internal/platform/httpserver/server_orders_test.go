package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	orderbroker "orderbridge/contexts/order-broker"
	ticketmapping "orderbridge/contexts/ticket-mapping"
)

func newTestServer() *Server {
	return New(
		orderbroker.NewInMemoryModule(nil),
		ticketmapping.NewInMemoryModule(nil),
		PrefilterConfig{},
		nil,
		":0",
		32,
	)
}

func ingestBody(sourceID string) []byte {
	body, _ := json.Marshal(map[string]string{
		"source_id":  sourceID,
		"event_type": "POSITION_OPENED",
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"symbol":     "EURUSD",
	})
	return body
}

func TestIngestDuplicateReturnsSameIDAndStatusOK(t *testing.T) {
	server := newTestServer()
	body := ingestBody("S1-dedup")

	req1 := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rr1 := httptest.NewRecorder()
	server.mux.ServeHTTP(rr1, req1)
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr1.Code, rr1.Body.String())
	}
	var first map[string]any
	if err := json.Unmarshal(rr1.Body.Bytes(), &first); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rr2 := httptest.NewRecorder()
	server.mux.ServeHTTP(rr2, req2)
	if rr2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate ingest, got %d body=%s", rr2.Code, rr2.Body.String())
	}
	var second map[string]any
	if err := json.Unmarshal(rr2.Body.Bytes(), &second); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if first["orderId"] != second["orderId"] {
		t.Fatalf("expected same orderId on duplicate ingest, got %#v and %#v", first["orderId"], second["orderId"])
	}
	if first["status"] != "Queued" {
		t.Fatalf("expected status Queued, got %#v", first["status"])
	}
	if second["duplicate"] != true {
		t.Fatalf("expected duplicate=true on second ingest, got %#v", second["duplicate"])
	}
}

func TestIngestRejectsUnrecognisedEventType(t *testing.T) {
	server := newTestServer()
	body, _ := json.Marshal(map[string]string{
		"source_id":  "S1",
		"event_type": "NOT_A_TYPE",
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"symbol":     "EURUSD",
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestIngestRejectsOverDeepJSON(t *testing.T) {
	server := newTestServer()

	nested := "1"
	for i := 0; i < 33; i++ {
		nested = fmt.Sprintf("[%s]", nested)
	}
	body := []byte(fmt.Sprintf(`{"source_id":"S1","event_type":"POSITION_OPENED","timestamp":"2025-01-01T00:00:00Z","symbol":"EURUSD","comment":%s}`, nested))

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for over-depth JSON, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestConsumerPollClaimsAndExcludesOverlap(t *testing.T) {
	server := newTestServer()
	server.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(ingestBody("S-poll-1"))))
	server.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(ingestBody("S-poll-2"))))

	req := httptest.NewRequest(http.MethodGet, "/orders/pending?max_count=10&consumer_id=c1", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("expected 2 claimed events, got %d", len(resp.Events))
	}

	req2 := httptest.NewRequest(http.MethodGet, "/orders/pending?max_count=10&consumer_id=c2", nil)
	rr2 := httptest.NewRecorder()
	server.mux.ServeHTTP(rr2, req2)
	var resp2 struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(rr2.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp2.Events) != 0 {
		t.Fatalf("expected second consumer to see no overlap, got %d", len(resp2.Events))
	}
}

func TestMarkProcessedUnknownIDReturns404(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/orders/does-not-exist/processed", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMarkProcessedIdempotentSecondCallIsNoop(t *testing.T) {
	server := newTestServer()
	server.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(ingestBody("S-ack"))))

	pollReq := httptest.NewRequest(http.MethodGet, "/orders/pending?max_count=1&consumer_id=c1", nil)
	pollRR := httptest.NewRecorder()
	server.mux.ServeHTTP(pollRR, pollReq)
	var claimed struct {
		Events []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	_ = json.Unmarshal(pollRR.Body.Bytes(), &claimed)
	if len(claimed.Events) != 1 {
		t.Fatalf("expected one claimed event, got %d", len(claimed.Events))
	}
	id := claimed.Events[0].ID

	rr1 := httptest.NewRecorder()
	server.mux.ServeHTTP(rr1, httptest.NewRequest(http.MethodPost, "/orders/"+id+"/processed", nil))
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr1.Code, rr1.Body.String())
	}

	rr2 := httptest.NewRecorder()
	server.mux.ServeHTTP(rr2, httptest.NewRequest(http.MethodPost, "/orders/"+id+"/processed", nil))
	if rr2.Code != http.StatusOK {
		t.Fatalf("expected second ack to remain 200 (idempotent), got %d body=%s", rr2.Code, rr2.Body.String())
	}
	if !strings.Contains(rr2.Body.String(), "noop") {
		t.Fatalf("expected noop status on repeated ack, got %s", rr2.Body.String())
	}
}

func TestRetryAlreadyDoneReturns400(t *testing.T) {
	server := newTestServer()
	server.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(ingestBody("S-retry-done"))))

	pollRR := httptest.NewRecorder()
	server.mux.ServeHTTP(pollRR, httptest.NewRequest(http.MethodGet, "/orders/pending?max_count=1&consumer_id=c1", nil))
	var claimed struct {
		Events []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	_ = json.Unmarshal(pollRR.Body.Bytes(), &claimed)
	id := claimed.Events[0].ID

	server.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/orders/"+id+"/processed", nil))

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/orders/"+id+"/retry", bytes.NewReader([]byte(`{}`))))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for retry on a done order, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpointReportsOK(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}
