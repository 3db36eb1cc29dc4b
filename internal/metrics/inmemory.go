package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ChatsCreated             uint64
	ChatsDeleted             uint64
	UserMessages             uint64
	AssistantMessages        uint64
	ResponderFallbacks       uint64
	ResponderDurationCount   uint64
	ResponderDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	chatsCreated             uint64
	chatsDeleted             uint64
	userMessages             uint64
	assistantMessages        uint64
	responderFallbacks       uint64
	responderDurationCount   uint64
	responderDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ChatsCreated:             atomic.LoadUint64(&m.chatsCreated),
		ChatsDeleted:             atomic.LoadUint64(&m.chatsDeleted),
		UserMessages:             atomic.LoadUint64(&m.userMessages),
		AssistantMessages:        atomic.LoadUint64(&m.assistantMessages),
		ResponderFallbacks:       atomic.LoadUint64(&m.responderFallbacks),
		ResponderDurationCount:   atomic.LoadUint64(&m.responderDurationCount),
		ResponderDurationTotalNs: atomic.LoadInt64(&m.responderDurationTotalNs),
	}
}

// IncChatCreated increments the chat creation counter.
func (m *InMemoryRecorder) IncChatCreated() {
	atomic.AddUint64(&m.chatsCreated, 1)
}

// IncChatDeleted increments the chat deletion counter.
func (m *InMemoryRecorder) IncChatDeleted() {
	atomic.AddUint64(&m.chatsDeleted, 1)
}

// IncMessageAppended increments the message counter for a sender.
func (m *InMemoryRecorder) IncMessageAppended(sender string) {
	if sender == "ASSISTANT" {
		atomic.AddUint64(&m.assistantMessages, 1)
		return
	}
	atomic.AddUint64(&m.userMessages, 1)
}

// IncResponderFallback increments the fallback-reply counter.
func (m *InMemoryRecorder) IncResponderFallback() {
	atomic.AddUint64(&m.responderFallbacks, 1)
}

// ObserveResponderDuration records how long a generation took.
func (m *InMemoryRecorder) ObserveResponderDuration(duration time.Duration) {
	atomic.AddUint64(&m.responderDurationCount, 1)
	atomic.AddInt64(&m.responderDurationTotalNs, duration.Nanoseconds())
}
