package bus

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsSnapshot is a point-in-time view of the running counters.
// ActiveCollaborations and QueueSize are derived by whoever assembles the
// snapshot; the counters themselves only ever increase.
type MetricsSnapshot struct {
	MessagesSent            int64         `json:"messages_sent"`
	MessagesProcessed       int64         `json:"messages_processed"`
	CollaborationsStarted   int64         `json:"collaborations_started"`
	CollaborationsCompleted int64         `json:"collaborations_completed"`
	AverageResponseTime     time.Duration `json:"average_response_time"`
	ActiveCollaborations    int64         `json:"active_collaborations"`
	QueueSize               int64         `json:"queue_size"`
}

// Metrics holds the running counters shared by the bus and the coordinator.
// Counters reset only on process restart.
type Metrics struct {
	messagesSent            atomic.Int64
	messagesProcessed       atomic.Int64
	collaborationsStarted   atomic.Int64
	collaborationsCompleted atomic.Int64

	latencyMu      sync.Mutex
	averageLatency time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordMessageSent() {
	m.messagesSent.Add(1)
}

// RecordMessageProcessed counts one dispatched message and folds its
// handling latency into the running average: avg' = avg + (sample-avg)/n.
func (m *Metrics) RecordMessageProcessed(latency time.Duration) {
	processed := m.messagesProcessed.Add(1)

	m.latencyMu.Lock()
	m.averageLatency += (latency - m.averageLatency) / time.Duration(processed)
	m.latencyMu.Unlock()
}

func (m *Metrics) RecordCollaborationStarted() {
	m.collaborationsStarted.Add(1)
}

func (m *Metrics) RecordCollaborationCompleted() {
	m.collaborationsCompleted.Add(1)
}

// Snapshot returns the counter values. Derived fields are left zero for the
// caller to fill in.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.latencyMu.Lock()
	average := m.averageLatency
	m.latencyMu.Unlock()

	return MetricsSnapshot{
		MessagesSent:            m.messagesSent.Load(),
		MessagesProcessed:       m.messagesProcessed.Load(),
		CollaborationsStarted:   m.collaborationsStarted.Load(),
		CollaborationsCompleted: m.collaborationsCompleted.Load(),
		AverageResponseTime:     average,
	}
}
