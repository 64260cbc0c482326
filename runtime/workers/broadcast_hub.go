package workers

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"chat-lounge/errors"
	"chat-lounge/observability"
	"context"
	errs "errors"
	"log/slog"
	"time"
)

var _ contract.IBroadcaster = (*BroadcastHub)(nil)

// BroadcastHub fans a domain event out to every registered connection.
//
// It keeps no state of its own: recipients are the registry snapshot taken
// when Broadcast is called. A failing recipient is logged and skipped, it
// never prevents delivery to the others.
//
// Ordering is the caller's business. Sinks are FIFO queues, so submitting
// broadcasts one at a time keeps the same relative order for every recipient.
type BroadcastHub struct {
	log         *slog.Logger
	registry    contract.IRegistry
	sinkTimeout time.Duration
	metrics     *observability.ChatMetrics
}

func NewBroadcastHub(log *slog.Logger, registry contract.IRegistry,
	sinkTimeout time.Duration, metrics *observability.ChatMetrics) *BroadcastHub {
	return &BroadcastHub{
		log:         log,
		registry:    registry,
		sinkTimeout: sinkTimeout,
		metrics:     metrics,
	}
}

// Broadcast returns the number of recipients the event was handed to.
// An empty exclude id excludes nobody.
func (h *BroadcastHub) Broadcast(ctx context.Context, e event.DomainEvent, exclude domain.ConnectionID) int {
	delivered := 0
	for conn, sink := range h.registry.AllConnections() {
		if exclude != "" && conn.ID == exclude {
			continue
		}
		if err := h.deliver(ctx, sink, e); err != nil {
			h.log.Warn("Delivery failed",
				"connection_id", conn.ID,
				"username", conn.Username,
				"event", e.Kind(),
				"error", err)
			h.metrics.DeliveryFailed(failureReason(err))
			continue
		}
		delivered++
	}
	h.metrics.Delivered(delivered)
	return delivered
}

func (h *BroadcastHub) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) error {
	ctx, cancel := context.WithTimeout(ctx, h.sinkTimeout)
	defer cancel()
	return sink.Consume(ctx, e)
}

func failureReason(err error) string {
	switch {
	case errs.Is(err, errors.ErrSlowConsumer):
		return "slow_consumer"
	case errs.Is(err, errors.ErrSinkClosed):
		return "sink_closed"
	case errs.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
