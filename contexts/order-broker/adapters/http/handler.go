package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"orderbridge/contexts/order-broker/application"
	"orderbridge/contexts/order-broker/domain/entities"
	domainerrors "orderbridge/contexts/order-broker/domain/errors"
	"orderbridge/contexts/order-broker/ports"
	httptransport "orderbridge/contexts/order-broker/transport/http"
	v1 "orderbridge/contracts/gen/events/v1"
	"orderbridge/internal/platform/observability"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) IngestHandler(ctx context.Context, envelope v1.TradeEventEnvelope) (httptransport.IngestResponse, error) {
	_, id, duplicate, err := h.Service.Ingest(ctx, envelope)
	if err != nil {
		return httptransport.IngestResponse{}, err
	}
	observability.OrdersReceivedTotal.Inc()
	if duplicate {
		observability.DuplicateOrdersTotal.Inc()
	}
	return httptransport.IngestResponse{Status: "Queued", OrderID: id, Duplicate: duplicate}, nil
}

func (h Handler) ClaimHandler(ctx context.Context, req httptransport.ClaimRequest) (httptransport.ClaimResponse, error) {
	views, err := h.Service.Claim(ctx, req.MaxCount, req.ConsumerID)
	if err != nil {
		return httptransport.ClaimResponse{}, err
	}
	return httptransport.ClaimResponse{Status: "success", Events: toDTOs(views)}, nil
}

// MarkDoneHandler acks an event. The existence check happens first so an
// unknown id surfaces as 404 rather than the ambiguous "false" Repo.MarkDone
// also returns for an already-done row: already-done stays a 200 noop,
// unknown is a 404.
func (h Handler) MarkDoneHandler(ctx context.Context, id string) (httptransport.SimpleStatusResponse, error) {
	existing, err := h.Service.Get(ctx, id)
	if err != nil {
		return httptransport.SimpleStatusResponse{}, err
	}
	transitioned, err := h.Service.MarkDone(ctx, id)
	if err != nil {
		return httptransport.SimpleStatusResponse{}, err
	}
	if !transitioned {
		return httptransport.SimpleStatusResponse{Status: "noop"}, nil
	}
	observability.OrdersProcessedTotal.Inc()
	observability.OrderProcessingDuration.Observe(time.Since(existing.CreatedAt).Seconds())
	return httptransport.SimpleStatusResponse{Status: "success"}, nil
}

// RetryHandler reschedules an event: 404 if unknown, 400 if already done,
// 200 if rescheduled.
func (h Handler) RetryHandler(ctx context.Context, id string, req httptransport.RetryRequest) (httptransport.SimpleStatusResponse, error) {
	existing, err := h.Service.Get(ctx, id)
	if err != nil {
		return httptransport.SimpleStatusResponse{}, err
	}
	if existing.State == entities.StateDone {
		return httptransport.SimpleStatusResponse{}, domainerrors.ErrAlreadyDone
	}
	delay := time.Duration(req.DelaySeconds) * time.Second
	transitioned, err := h.Service.ScheduleRetry(ctx, id, delay)
	if err != nil {
		return httptransport.SimpleStatusResponse{}, err
	}
	if !transitioned {
		return httptransport.SimpleStatusResponse{}, domainerrors.ErrAlreadyDone
	}
	return httptransport.SimpleStatusResponse{Status: "success"}, nil
}

func (h Handler) GetHandler(ctx context.Context, id string) (httptransport.EventResponse, error) {
	view, err := h.Service.Get(ctx, id)
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return httptransport.EventResponse{Status: "success", Data: toDTO(view)}, nil
}

func (h Handler) ListPendingHandler(ctx context.Context, limit int) (httptransport.EventListResponse, error) {
	views, err := h.Service.ListPending(ctx, limit)
	if err != nil {
		return httptransport.EventListResponse{}, err
	}
	return httptransport.EventListResponse{Status: "success", Data: toDTOs(views)}, nil
}

func (h Handler) ListFallowHandler(ctx context.Context, limit int) (httptransport.EventListResponse, error) {
	views, err := h.Service.ListFallow(ctx, limit)
	if err != nil {
		return httptransport.EventListResponse{}, err
	}
	return httptransport.EventListResponse{Status: "success", Data: toDTOs(views)}, nil
}

func (h Handler) StatsHandler(ctx context.Context) (httptransport.StatsResponse, error) {
	stats, err := h.Service.ListStats(ctx)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	return httptransport.StatsResponse{
		Status: "success",
		Data: httptransport.StatsData{
			Total:       stats.Total,
			Pending:     stats.Pending,
			Done:        stats.Done,
			Fallow:      stats.Fallow,
			RecentCount: stats.RecentCount,
		},
	}, nil
}

func (h Handler) SweepFailedHandler(ctx context.Context) (httptransport.SweepResponse, error) {
	count, err := h.Service.SweepFailed(ctx)
	if err != nil {
		return httptransport.SweepResponse{}, err
	}
	return httptransport.SweepResponse{Status: "success", Count: count}, nil
}

func toDTO(view ports.ClaimedEventView) httptransport.EventDTO {
	return httptransport.EventDTO{
		ID:          view.ID,
		SourceID:    view.SourceID,
		EventType:   view.EventType,
		Timestamp:   view.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:     view.Payload,
		CreatedAt:   view.CreatedAt.UTC().Format(time.RFC3339Nano),
		State:       string(view.State),
		ClaimOwner:  view.ClaimOwner,
		ClaimedAt:   formatOptionalTime(view.ClaimedAt),
		ProcessedAt: formatOptionalTime(view.ProcessedAt),
		RetryCount:  view.RetryCount,
		NextRetryAt: formatOptionalTime(view.NextRetryAt),
	}
}

func toDTOs(views []ports.ClaimedEventView) []httptransport.EventDTO {
	out := make([]httptransport.EventDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toDTO(v))
	}
	return out
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
