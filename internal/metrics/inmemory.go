package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RosterCacheHits     uint64
	RosterCacheMisses   uint64
	Logins              map[string]uint64
	MessagesSent        uint64
	FanoutTotal         uint64
	SyncTicks           map[string]uint64
	SyncDurationCount   uint64
	SyncDurationTotalNs int64
	MessagesMerged      uint64
	Notifications       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	rosterCacheHits     uint64
	rosterCacheMisses   uint64
	messagesSent        uint64
	fanoutTotal         uint64
	syncDurationCount   uint64
	syncDurationTotalNs int64
	messagesMerged      uint64
	notifications       uint64

	mu        sync.Mutex
	logins    map[string]uint64
	syncTicks map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:    make(map[string]uint64),
		syncTicks: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	logins := make(map[string]uint64, len(m.logins))
	for k, v := range m.logins {
		logins[k] = v
	}
	ticks := make(map[string]uint64, len(m.syncTicks))
	for k, v := range m.syncTicks {
		ticks[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		RosterCacheHits:     atomic.LoadUint64(&m.rosterCacheHits),
		RosterCacheMisses:   atomic.LoadUint64(&m.rosterCacheMisses),
		Logins:              logins,
		MessagesSent:        atomic.LoadUint64(&m.messagesSent),
		FanoutTotal:         atomic.LoadUint64(&m.fanoutTotal),
		SyncTicks:           ticks,
		SyncDurationCount:   atomic.LoadUint64(&m.syncDurationCount),
		SyncDurationTotalNs: atomic.LoadInt64(&m.syncDurationTotalNs),
		MessagesMerged:      atomic.LoadUint64(&m.messagesMerged),
		Notifications:       atomic.LoadUint64(&m.notifications),
	}
}

// IncRosterCacheHit increments the roster cache hit counter.
func (m *InMemoryRecorder) IncRosterCacheHit() {
	atomic.AddUint64(&m.rosterCacheHits, 1)
}

// IncRosterCacheMiss increments the roster cache miss counter.
func (m *InMemoryRecorder) IncRosterCacheMiss() {
	atomic.AddUint64(&m.rosterCacheMisses, 1)
}

// IncLogin increments the login counter for the given outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.mu.Lock()
	m.logins[status]++
	m.mu.Unlock()
}

// IncMessageSent increments the sent message counter.
func (m *InMemoryRecorder) IncMessageSent() {
	atomic.AddUint64(&m.messagesSent, 1)
}

// ObserveMessageFanout accumulates recipient counts.
func (m *InMemoryRecorder) ObserveMessageFanout(recipients int) {
	if recipients > 0 {
		atomic.AddUint64(&m.fanoutTotal, uint64(recipients))
	}
}

// IncSyncTick increments the tick counter for the given outcome.
func (m *InMemoryRecorder) IncSyncTick(status string) {
	m.mu.Lock()
	m.syncTicks[status]++
	m.mu.Unlock()
}

// ObserveSyncDuration accumulates sync fetch+merge durations.
func (m *InMemoryRecorder) ObserveSyncDuration(duration time.Duration) {
	atomic.AddUint64(&m.syncDurationCount, 1)
	atomic.AddInt64(&m.syncDurationTotalNs, duration.Nanoseconds())
}

// IncMessagesMerged adds to the merged message counter.
func (m *InMemoryRecorder) IncMessagesMerged(count int) {
	if count > 0 {
		atomic.AddUint64(&m.messagesMerged, uint64(count))
	}
}

// IncNotifications increments the notification counter.
func (m *InMemoryRecorder) IncNotifications() {
	atomic.AddUint64(&m.notifications, 1)
}
