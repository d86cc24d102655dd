package httpserver

import (
	"net/http"

	tickettransport "orderbridge/contexts/ticket-mapping/transport/http"
)

func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	var req tickettransport.PutMappingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.ticketMapping.Handler.PutMappingHandler(r.Context(), req)
	if err != nil {
		writeTicketMappingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ticketMapping.Handler.GetMappingHandler(r.Context(), r.PathValue("source_ticket"))
	if err != nil {
		writeTicketMappingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
