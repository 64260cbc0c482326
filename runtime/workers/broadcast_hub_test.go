package workers

import (
	"chat-lounge/contract"
	"chat-lounge/domain"
	"chat-lounge/domain/event"
	"chat-lounge/errors"
	"chat-lounge/mocks"
	"chat-lounge/sink"
	"context"
	"iter"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recipient struct {
	conn domain.Connection
	sink contract.EventSink
}

func connections(recipients ...recipient) iter.Seq2[domain.Connection, contract.EventSink] {
	return func(yield func(domain.Connection, contract.EventSink) bool) {
		for _, r := range recipients {
			if !yield(r.conn, r.sink) {
				return
			}
		}
	}
}

func connection(id, username string) domain.Connection {
	return domain.NewConnection(domain.ConnectionID(id), domain.Username(username), time.Now())
}

func TestBroadcastHub_Broadcast_To_All(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	alice := mocks.NewMockEventSink(ctrl)
	bob := mocks.NewMockEventSink(ctrl)
	evt := event.UserJoined{Username: "bob"}

	// Given two registered connections
	mockRegistry.EXPECT().AllConnections().Return(connections(
		recipient{connection("c1", "alice"), alice},
		recipient{connection("c2", "bob"), bob},
	)).Times(1)
	// Then both sinks receive the event
	alice.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	bob.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	hub := NewBroadcastHub(log, mockRegistry, time.Second, nil)

	// When the event is broadcast excluding nobody
	delivered := hub.Broadcast(context.Background(), evt, "")

	req.Equal(2, delivered)
}

func TestBroadcastHub_Broadcast_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	alice := mocks.NewMockEventSink(ctrl)
	bob := mocks.NewMockEventSink(ctrl)
	evt := event.UserTyping{Username: "alice"}

	mockRegistry.EXPECT().AllConnections().Return(connections(
		recipient{connection("c1", "alice"), alice},
		recipient{connection("c2", "bob"), bob},
	)).Times(1)
	// Then the excluded connection is never called
	alice.EXPECT().Consume(gomock.Any(), gomock.Any()).Times(0)
	bob.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	hub := NewBroadcastHub(log, mockRegistry, time.Second, nil)

	req.Equal(1, hub.Broadcast(context.Background(), evt, "c1"))
}

func TestBroadcastHub_Failing_Recipient_Does_Not_Abort(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	stale := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)
	evt := event.UserLeft{Username: "clara"}

	// Given a stale recipient listed before a healthy one
	mockRegistry.EXPECT().AllConnections().Return(connections(
		recipient{connection("c1", "alice"), stale},
		recipient{connection("c2", "bob"), healthy},
	)).Times(1)
	stale.EXPECT().Consume(gomock.Any(), evt).Return(errors.ErrSinkClosed).Times(1)
	// Then the healthy recipient still receives the event
	healthy.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	hub := NewBroadcastHub(log, mockRegistry, time.Second, nil)

	req.Equal(1, hub.Broadcast(context.Background(), evt, ""))
}

func TestBroadcastHub_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	blocked := mocks.NewMockEventSink(ctrl)
	evt := event.UserJoined{Username: "bob"}

	mockRegistry.EXPECT().AllConnections().Return(connections(
		recipient{connection("c1", "alice"), blocked},
	)).Times(1)
	// Given a sink waiting on its context
	blocked.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	hub := NewBroadcastHub(log, mockRegistry, 20*time.Millisecond, nil)

	// When the event is broadcast
	start := time.Now()
	delivered := hub.Broadcast(context.Background(), evt, "")

	// Then the hub gives up after the sink timeout
	req.Zero(delivered)
	req.Less(time.Since(start), time.Second)
}

func TestBroadcastHub_Keeps_Order_Per_Recipient(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	first := sink.NewConnectionSink(10)
	second := sink.NewConnectionSink(10)
	recipients := []recipient{
		{connection("c1", "alice"), first},
		{connection("c2", "bob"), second},
	}
	mockRegistry.EXPECT().AllConnections().
		DoAndReturn(func() iter.Seq2[domain.Connection, contract.EventSink] {
			return connections(recipients...)
		}).
		Times(3)

	hub := NewBroadcastHub(log, mockRegistry, time.Second, nil)
	at := time.Now()
	m1 := event.MessagePosted{Message: domain.NewChatMessage("alice", "m1", at)}
	m2 := event.MessagePosted{Message: domain.NewChatMessage("alice", "m2", at)}
	typing := event.UserTyping{Username: "bob"}

	// When events are broadcast one after the other
	hub.Broadcast(context.Background(), m1, "")
	hub.Broadcast(context.Background(), typing, "")
	hub.Broadcast(context.Background(), m2, "")

	// Then every recipient observes the submission order
	for _, s := range []*sink.ConnectionSink{first, second} {
		req.Equal(m1, <-s.Events())
		req.Equal(typing, <-s.Events())
		req.Equal(m2, <-s.Events())
	}
}
