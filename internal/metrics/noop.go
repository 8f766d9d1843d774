package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncRosterCacheHit is a no-op.
func (n *NoopRecorder) IncRosterCacheHit() {}

// IncRosterCacheMiss is a no-op.
func (n *NoopRecorder) IncRosterCacheMiss() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncMessageSent is a no-op.
func (n *NoopRecorder) IncMessageSent() {}

// ObserveMessageFanout is a no-op.
func (n *NoopRecorder) ObserveMessageFanout(recipients int) {}

// IncSyncTick is a no-op.
func (n *NoopRecorder) IncSyncTick(status string) {}

// ObserveSyncDuration is a no-op.
func (n *NoopRecorder) ObserveSyncDuration(duration time.Duration) {}

// IncMessagesMerged is a no-op.
func (n *NoopRecorder) IncMessagesMerged(count int) {}

// IncNotifications is a no-op.
func (n *NoopRecorder) IncNotifications() {}
