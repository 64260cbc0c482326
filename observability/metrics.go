package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessStats is the latest self-sample of the chat process.
type ProcessStats struct {
	Pid        int32     `json:"pid"`
	Status     string    `json:"status"`
	RssBytes   uint64    `json:"rss_bytes"`
	CpuPercent float64   `json:"cpu_percent"`
	SampledAt  time.Time `json:"sampled_at"`
}

// ChatMetrics is safe to use on a nil receiver, every recorder becomes a no-op.
type ChatMetrics struct {
	onlineConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	messagesTotal     prometheus.Counter
	typingTotal       prometheus.Counter
	deliveries        *prometheus.CounterVec
	storageErrors     prometheus.Counter
	censoredMessages  prometheus.Counter
	queueBacklog      prometheus.Gauge
	queueSaturation   prometheus.Gauge
	processRss        prometheus.Gauge
	processCpu        prometheus.Gauge

	mu     sync.RWMutex
	latest ProcessStats
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &ChatMetrics{
		onlineConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections_online",
			Help: "Current number of registered connections.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Total number of connections activated since start.",
		}),
		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages appended to the log.",
		}),
		typingTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_typing_total",
			Help: "Typing notifications relayed.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_deliveries_total",
			Help: "Per-recipient deliveries grouped by result.",
		}, []string{"result"}),
		storageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_storage_errors_total",
			Help: "Messages the durable log failed to record.",
		}),
		censoredMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_censored_messages_total",
			Help: "Chat messages rewritten by moderation.",
		}),
		queueBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_outbound_backlog",
			Help: "Events waiting in all outbound connection queues.",
		}),
		queueSaturation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_outbound_saturation_ratio",
			Help: "Fill ratio of the most loaded outbound queue.",
		}),
		processRss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_rss_bytes",
			Help: "Resident memory of the chat process.",
		}),
		processCpu: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_process_cpu_percent",
			Help: "CPU usage of the chat process.",
		}),
	}

	reg.MustRegister(
		m.onlineConnections,
		m.connectionsTotal,
		m.messagesTotal,
		m.typingTotal,
		m.deliveries,
		m.storageErrors,
		m.censoredMessages,
		m.queueBacklog,
		m.queueSaturation,
		m.processRss,
		m.processCpu,
	)
	return m
}

func (m *ChatMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.onlineConnections.Inc()
	m.connectionsTotal.Inc()
}

func (m *ChatMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.onlineConnections.Dec()
}

func (m *ChatMetrics) MessagePosted() {
	if m == nil {
		return
	}
	m.messagesTotal.Inc()
}

func (m *ChatMetrics) TypingRelayed() {
	if m == nil {
		return
	}
	m.typingTotal.Inc()
}

func (m *ChatMetrics) Delivered(count int) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues("delivered").Add(float64(count))
}

func (m *ChatMetrics) DeliveryFailed(reason string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(reason).Inc()
}

func (m *ChatMetrics) StorageFailed() {
	if m == nil {
		return
	}
	m.storageErrors.Inc()
}

func (m *ChatMetrics) Censored() {
	if m == nil {
		return
	}
	m.censoredMessages.Inc()
}

func (m *ChatMetrics) RecordQueues(backlog int, saturation float64) {
	if m == nil {
		return
	}
	m.queueBacklog.Set(float64(backlog))
	m.queueSaturation.Set(saturation)
}

func (m *ChatMetrics) RecordProcess(stats ProcessStats) {
	if m == nil {
		return
	}
	m.processRss.Set(float64(stats.RssBytes))
	m.processCpu.Set(stats.CpuPercent)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = stats
}

// LatestProcess returns the zero value until the heartbeat has sampled once.
func (m *ChatMetrics) LatestProcess() ProcessStats {
	if m == nil {
		return ProcessStats{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
