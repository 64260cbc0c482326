package workers

import (
	"chat-lounge/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker samples the chat process itself (RSS, CPU, OS status)
// and publishes it to the metrics, /health reads the latest sample.
type HeartbeatWorker struct {
	log            *slog.Logger
	metrics        *observability.ChatMetrics
	metricInterval time.Duration
}

func NewHeartbeatWorker(log *slog.Logger, metrics *observability.ChatMetrics,
	metricInterval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:            log,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "error", err)
				continue
			}
			w.metrics.RecordProcess(stats)
		}
	}
}

func getSelfStats(p *process.Process) (observability.ProcessStats, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return observability.ProcessStats{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return observability.ProcessStats{}, err
	}

	status, err := p.Status()
	if err != nil {
		return observability.ProcessStats{}, err
	}
	return observability.ProcessStats{
		Pid:        p.Pid,
		Status:     status,
		RssBytes:   memInfo.RSS,
		CpuPercent: cpuPercent,
		SampledAt:  time.Now().UTC(),
	}, nil
}
