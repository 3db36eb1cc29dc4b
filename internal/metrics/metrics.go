// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Conversation metrics
	IncChatCreated()
	IncChatDeleted()
	IncMessageAppended(sender string) // sender: "USER" or "ASSISTANT"

	// Responder gateway metrics
	IncResponderFallback()
	ObserveResponderDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
