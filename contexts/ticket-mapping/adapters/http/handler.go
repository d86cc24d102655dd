package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"orderbridge/contexts/ticket-mapping/application"
	"orderbridge/contexts/ticket-mapping/ports"
	httptransport "orderbridge/contexts/ticket-mapping/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) PutMappingHandler(ctx context.Context, req httptransport.PutMappingRequest) (httptransport.PutMappingResponse, error) {
	err := h.Service.PutMapping(ctx, ports.PutMappingInput{
		SourceTicket: req.SourceTicket,
		SlaveTicket:  req.SlaveTicket,
		Symbol:       req.Symbol,
		Size:         req.Size,
	})
	if err != nil {
		return httptransport.PutMappingResponse{}, err
	}
	return httptransport.PutMappingResponse{Status: "success"}, nil
}

func (h Handler) GetMappingHandler(ctx context.Context, sourceTicket string) (httptransport.GetMappingResponse, error) {
	mapping, err := h.Service.GetMapping(ctx, sourceTicket)
	if err != nil {
		return httptransport.GetMappingResponse{}, err
	}
	return httptransport.GetMappingResponse{
		Status: "success",
		Data: httptransport.MappingDTO{
			SourceTicket: mapping.SourceTicket,
			SlaveTicket:  mapping.SlaveTicket,
			Symbol:       mapping.Symbol,
			Size:         mapping.Size,
			UpdatedAt:    mapping.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}
