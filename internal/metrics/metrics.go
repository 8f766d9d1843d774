// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Roster cache metrics
	IncRosterCacheHit()
	IncRosterCacheMiss()

	// Login metrics
	IncLogin(status string) // status: "success", "rejected", "rate_limited"

	// Messaging metrics
	IncMessageSent()
	ObserveMessageFanout(recipients int)

	// Sync engine metrics (client side)
	IncSyncTick(status string) // status: "success", "failed", "empty"
	ObserveSyncDuration(duration time.Duration)
	IncMessagesMerged(count int)
	IncNotifications()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
