package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncChatCreated is a no-op.
func (n *NoopRecorder) IncChatCreated() {}

// IncChatDeleted is a no-op.
func (n *NoopRecorder) IncChatDeleted() {}

// IncMessageAppended is a no-op.
func (n *NoopRecorder) IncMessageAppended(sender string) {}

// IncResponderFallback is a no-op.
func (n *NoopRecorder) IncResponderFallback() {}

// ObserveResponderDuration is a no-op.
func (n *NoopRecorder) ObserveResponderDuration(duration time.Duration) {}
