package workers

import (
	"chat-lounge/contract"
	"chat-lounge/observability"
	"context"
	"log/slog"
	"time"
)

// QueueDepthWorker periodically samples the outbound queues of every
// registered connection. Reading a queue length never blocks the queue owner,
// a sample may be slightly stale which is fine for a gauge.
type QueueDepthWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	metrics        *observability.ChatMetrics
	metricInterval time.Duration
}

func NewQueueDepthWorker(log *slog.Logger, registry contract.IRegistry,
	metrics *observability.ChatMetrics, metricInterval time.Duration) *QueueDepthWorker {
	return &QueueDepthWorker{
		log:            log,
		registry:       registry,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w QueueDepthWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping queue sampling")
			return nil
		case <-ticker.C:
			backlog, saturation := w.Sample()
			w.metrics.RecordQueues(backlog, saturation)
		}
	}
}

// Sample returns the total number of queued events and the fill ratio
// of the most loaded queue. Sinks without a bounded queue are ignored.
func (w QueueDepthWorker) Sample() (int, float64) {
	backlog, saturation := 0, 0.0
	for conn, sink := range w.registry.AllConnections() {
		reporter, ok := sink.(contract.QueueReporter)
		if !ok {
			continue
		}
		length, capacity := reporter.Backlog()
		backlog += length
		if capacity == 0 {
			continue
		}
		ratio := float64(length) / float64(capacity)
		if ratio > saturation {
			saturation = ratio
		}
		if ratio >= 0.8 {
			w.log.Debug("Outbound queue almost full", "connection_id", conn.ID, "length", length, "capacity", capacity)
		}
	}
	return backlog, saturation
}
