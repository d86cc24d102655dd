package httpserver

import (
	"encoding/json"
	"net/http"

	httptransport "orderbridge/contexts/order-broker/transport/http"
	v1 "orderbridge/contracts/gen/events/v1"
)

// applyIdempotencyKey lets a caller override the envelope's source_id with
// an Idempotency-Key header, so a delivery can be deduplicated by a stable
// client-chosen key instead of whatever source_id the producer happened to send.
func applyIdempotencyKey(r *http.Request, envelope v1.TradeEventEnvelope) v1.TradeEventEnvelope {
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		envelope.SourceID = key
	}
	return envelope
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBoundedBody(w, r)
	if !ok {
		return
	}
	var envelope v1.TradeEventEnvelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			writeOrderBrokerErrorBody(w, http.StatusBadRequest, "request body must be valid JSON")
			return
		}
	}
	envelope = applyIdempotencyKey(r, envelope)
	resp, err := s.orderBroker.Handler.IngestHandler(r.Context(), envelope)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req httptransport.ClaimRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.orderBroker.Handler.ClaimHandler(r.Context(), req)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleConsumerPoll implements GET /orders/pending?max_count&consumer_id,
// the consumer's poll path. It atomically claims events rather than just
// listing them, so two consumers polling concurrently never see the same row.
func (s *Server) handleConsumerPoll(w http.ResponseWriter, r *http.Request) {
	req := httptransport.ClaimRequest{
		MaxCount:   queryInt(r, "max_count", 10),
		ConsumerID: r.URL.Query().Get("consumer_id"),
	}
	resp, err := s.orderBroker.Handler.ClaimHandler(r.Context(), req)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orderBroker.Handler.MarkDoneHandler(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req httptransport.RetryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.orderBroker.Handler.RetryHandler(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orderBroker.Handler.GetHandler(r.Context(), r.PathValue("id"))
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	resp, err := s.orderBroker.Handler.ListPendingHandler(r.Context(), limit)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFailed(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	resp, err := s.orderBroker.Handler.ListFallowHandler(r.Context(), limit)
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSweepFailed(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orderBroker.Handler.SweepFailedHandler(r.Context())
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orderBroker.Handler.StatsHandler(r.Context())
	if err != nil {
		writeOrderBrokerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
