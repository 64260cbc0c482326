package workers

import (
	"chat-lounge/domain/event"
	"chat-lounge/mocks"
	"chat-lounge/sink"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestQueueDepthWorker_Sample(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)

	busy := sink.NewConnectionSink(4)
	idle := sink.NewConnectionSink(4)
	for i := 0; i < 3; i++ {
		req.NoError(busy.Consume(context.Background(), event.UserTyping{Username: "bob"}))
	}
	req.NoError(idle.Consume(context.Background(), event.UserTyping{Username: "bob"}))

	// Given two bounded queues and one sink without queue
	mockRegistry.EXPECT().AllConnections().Return(connections(
		recipient{connection("c1", "alice"), busy},
		recipient{connection("c2", "bob"), idle},
		recipient{connection("c3", "clara"), mocks.NewMockEventSink(ctrl)},
	)).Times(1)

	worker := NewQueueDepthWorker(log, mockRegistry, nil, time.Second)

	// When the queues are sampled
	backlog, saturation := worker.Sample()

	// Then the backlog is summed and the saturation is the worst queue
	req.Equal(4, backlog)
	req.InDelta(0.75, saturation, 0.001)
}
