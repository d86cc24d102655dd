package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	orderbroker "orderbridge/contexts/order-broker"
	ticketmapping "orderbridge/contexts/ticket-mapping"
	_ "orderbridge/internal/platform/httpserver/docs"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	mux             *http.ServeMux
	logger          *slog.Logger
	addr            string
	httpServer      *http.Server
	orderBroker     orderbroker.Module
	ticketMapping   ticketmapping.Module
	prefilter       *prefilter
	maxPayloadDepth int
}

func New(
	orderBrokerModule orderbroker.Module,
	ticketMappingModule ticketmapping.Module,
	prefilterConfig PrefilterConfig,
	logger *slog.Logger,
	addr string,
	maxPayloadDepth int,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":5000"
	}
	if maxPayloadDepth <= 0 {
		maxPayloadDepth = 32
	}
	s := &Server{
		mux:             http.NewServeMux(),
		logger:          logger,
		addr:            addr,
		orderBroker:     orderBrokerModule,
		ticketMapping:   ticketMappingModule,
		prefilter:       newPrefilter(prefilterConfig),
		maxPayloadDepth: maxPayloadDepth,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.Handle("POST /orders", s.guard(http.HandlerFunc(s.handleIngest)))
	s.mux.Handle("GET /orders/pending", s.guard(http.HandlerFunc(s.handleConsumerPoll)))
	s.mux.Handle("GET /orders/failed", s.guard(http.HandlerFunc(s.handleListFailed)))
	s.mux.Handle("POST /orders/failed/sweep", s.guard(http.HandlerFunc(s.handleSweepFailed)))
	s.mux.Handle("GET /orders/{id}", s.guard(http.HandlerFunc(s.handleGetOrder)))
	s.mux.Handle("POST /orders/{id}/processed", s.guard(http.HandlerFunc(s.handleMarkProcessed)))
	s.mux.Handle("POST /orders/{id}/retry", s.guard(http.HandlerFunc(s.handleRetry)))
	s.mux.Handle("GET /queue", s.guard(http.HandlerFunc(s.handleListPending)))
	s.mux.Handle("POST /queue/claim", s.guard(http.HandlerFunc(s.handleClaim)))
	s.mux.Handle("GET /stats", s.guard(http.HandlerFunc(s.handleStats)))
	s.mux.Handle("GET /status", s.guard(http.HandlerFunc(s.handleStats)))

	s.mux.Handle("POST /ticket-map", s.guard(http.HandlerFunc(s.handlePutMapping)))
	s.mux.Handle("GET /ticket-map/{source_ticket}", s.guard(http.HandlerFunc(s.handleGetMapping)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.orderBroker.Service.Repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readBoundedBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, "request body must be valid JSON")
		return nil, false
	}
	if len(body) == 0 {
		return body, true
	}
	if err := checkJSONDepth(body, s.maxPayloadDepth); err != nil {
		writeOrderBrokerDomainError(w, err)
		return nil, false
	}
	return body, true
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, ok := s.readBoundedBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, "request body must be valid JSON")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
