// Package producer implements the producer-side durable outbox: a
// synchronous enqueue contract backed by an in-memory FIFO, a durable append
// log, and a circuit-broken HTTP sender with an unbounded retry loop.
package producer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	v1 "orderbridge/contracts/gen/events/v1"
	"orderbridge/internal/platform/observability"
)

// Config holds the outbox's tunables, sourced from producer configuration.
type Config struct {
	BridgeURL               string
	APIKey                  string
	MaxQueueSize            int
	MaxFileSizeMB           int
	RetainedBackups         int
	SendTimeout             time.Duration
	RetryInterval           time.Duration
	CircuitFailureThreshold int
	CircuitCooldown         time.Duration
	OutboxLogPath           string
	Logger                  *slog.Logger
}

type queuedEnvelope struct {
	Envelope v1.TradeEventEnvelope `json:"envelope"`
	Attempts int                   `json:"attempts"`
}

// Stats backs the producer process's /health introspection: queue depth,
// the drop counter, and current breaker state.
type Stats struct {
	QueueDepth   int
	DroppedTotal int
	BreakerState string
}

// Outbox is the single long-lived object holding all producer-side state:
// queue, file handle, breaker.
type Outbox struct {
	mu            sync.Mutex
	queue         []queuedEnvelope
	maxQueueSize  int
	dropped       int
	retryInterval time.Duration

	log     *fileLog
	breaker *breaker
	sender  *sender
	logger  *slog.Logger
}

// NewOutbox constructs the outbox and replays any envelopes left over from
// a previous process.
func NewOutbox(cfg Config) (*Outbox, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxQueueSize := cfg.MaxQueueSize
	if maxQueueSize <= 0 {
		maxQueueSize = 10000
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 60 * time.Second
	}

	o := &Outbox{
		maxQueueSize:  maxQueueSize,
		retryInterval: retryInterval,
		log:           newFileLog(cfg.OutboxLogPath, cfg.MaxFileSizeMB, cfg.RetainedBackups, logger),
		breaker:       newBreaker(cfg.CircuitFailureThreshold, cfg.CircuitCooldown),
		sender:        newSender(cfg.BridgeURL, cfg.APIKey, cfg.SendTimeout),
		logger:        logger,
	}

	lines, err := o.log.Load()
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		var qe queuedEnvelope
		if err := json.Unmarshal(line, &qe); err != nil {
			logger.Warn("skipping unreadable replayed outbox entry",
				"event", "producer_outbox_replay_skip",
				"module", "producer",
				"layer", "adapter",
				"error", err.Error(),
			)
			continue
		}
		o.queue = append(o.queue, qe)
	}
	observability.ProducerOutboxDepth.Set(float64(len(o.queue)))
	if len(o.queue) > 0 {
		logger.Info("replayed outbox entries from disk",
			"event", "producer_outbox_replayed",
			"module", "producer",
			"layer", "adapter",
			"count", len(o.queue),
		)
	}
	return o, nil
}

// Enqueue offers the event source a single synchronous operation: the
// envelope is durably recorded before this call returns. When the
// in-memory queue is at capacity the oldest entry is evicted and counted
// in the drop counter.
func (o *Outbox) Enqueue(_ context.Context, envelope v1.TradeEventEnvelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) >= o.maxQueueSize {
		o.queue = o.queue[1:]
		o.dropped++
		observability.ProducerOutboxDropped.Inc()
		o.logger.Warn("outbox queue full, dropped oldest envelope",
			"event", "producer_outbox_dropped",
			"module", "producer",
			"layer", "adapter",
			"max_queue_size", o.maxQueueSize,
		)
	}
	o.queue = append(o.queue, queuedEnvelope{Envelope: envelope})
	observability.ProducerOutboxDepth.Set(float64(len(o.queue)))
	return o.log.Rewrite(o.serializeLocked())
}

// Start runs the unbounded retry loop until ctx is
// cancelled: while the breaker is open it waits out the cooldown; otherwise
// it sends the head of the queue and backs off on failure.
func (o *Outbox) Start(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !o.breaker.allow() {
			if !sleepOrDone(ctx, o.retryInterval) {
				return
			}
			continue
		}

		item, ok := o.peek()
		if !ok {
			if !sleepOrDone(ctx, o.retryInterval) {
				return
			}
			continue
		}

		if err := o.sender.Send(ctx, item.Envelope); err != nil {
			o.breaker.recordFailure()
			if o.breaker.currentState() == breakerOpen {
				observability.ProducerBreakerOpenTotal.Inc()
			}
			o.logger.Warn("outbox send failed",
				"event", "producer_outbox_send_failed",
				"module", "producer",
				"layer", "adapter",
				"source_id", item.Envelope.SourceID,
				"error", err.Error(),
			)
			o.bumpHeadAttempts()
			if !sleepOrDone(ctx, retryBackoff(attempt)) {
				return
			}
			attempt++
			continue
		}

		o.breaker.recordSuccess()
		attempt = 0
		o.popHead()
	}
}

// Stats reports queue depth, drop count, and breaker state for the
// producer process's own health endpoint.
func (o *Outbox) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		QueueDepth:   len(o.queue),
		DroppedTotal: o.dropped,
		BreakerState: o.breaker.currentState().String(),
	}
}

func (o *Outbox) peek() (queuedEnvelope, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return queuedEnvelope{}, false
	}
	return o.queue[0], true
}

func (o *Outbox) popHead() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return
	}
	o.queue = o.queue[1:]
	observability.ProducerOutboxDepth.Set(float64(len(o.queue)))
	if err := o.log.Rewrite(o.serializeLocked()); err != nil {
		o.logger.Error("outbox log rewrite failed after delivery",
			"event", "producer_outbox_rewrite_failed",
			"module", "producer",
			"layer", "adapter",
			"error", err.Error(),
		)
	}
}

func (o *Outbox) bumpHeadAttempts() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return
	}
	o.queue[0].Attempts++
}

func (o *Outbox) serializeLocked() []json.RawMessage {
	entries := make([]json.RawMessage, 0, len(o.queue))
	for _, qe := range o.queue {
		raw, err := json.Marshal(qe)
		if err != nil {
			continue
		}
		entries = append(entries, raw)
	}
	return entries
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func retryBackoff(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Minute
	b.Multiplier = 2
	b.RandomizationFactor = 0
	var d time.Duration
	for i := 0; i <= attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
