package sink

import (
	"chat-lounge/domain/event"
	"chat-lounge/errors"
	"context"
	"sync"
)

// ConnectionSink is the bounded outbound queue of one websocket connection.
// The broadcast hub writes into it, the connection write pump drains it,
// so per-recipient order is the enqueue order.
// A full queue means the client is stuck: the sink closes itself and the
// transport is torn down through the regular disconnect path.
type ConnectionSink struct {
	mu     sync.Mutex
	closed bool
	events chan event.DomainEvent
	done   chan struct{}
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		events: make(chan event.DomainEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the broadcast hub and never blocks.
func (s *ConnectionSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.events <- e:
		return nil
	default:
		s.closeLocked()
		return errors.ErrSlowConsumer
	}
}

// Events is drained by the owner of the connection.
// The channel is never closed, watch Done instead.
func (s *ConnectionSink) Events() <-chan event.DomainEvent {
	return s.events
}

func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

func (s *ConnectionSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *ConnectionSink) Backlog() (int, int) {
	return len(s.events), cap(s.events)
}

func (s *ConnectionSink) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
