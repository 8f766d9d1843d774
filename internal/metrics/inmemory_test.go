package metrics

import (
	"testing"
	"time"
)

func TestInMemoryRecorder(t *testing.T) {
	t.Parallel()

	m := NewInMemory()

	m.IncRosterCacheHit()
	m.IncRosterCacheHit()
	m.IncRosterCacheMiss()
	m.IncLogin("success")
	m.IncLogin("rejected")
	m.IncLogin("success")
	m.IncMessageSent()
	m.ObserveMessageFanout(3)
	m.ObserveMessageFanout(0)
	m.IncSyncTick("success")
	m.IncSyncTick("empty")
	m.ObserveSyncDuration(10 * time.Millisecond)
	m.IncMessagesMerged(5)
	m.IncMessagesMerged(0)
	m.IncNotifications()

	snap := m.Snapshot()

	if snap.RosterCacheHits != 2 || snap.RosterCacheMisses != 1 {
		t.Errorf("cache counters = %d/%d, want 2/1", snap.RosterCacheHits, snap.RosterCacheMisses)
	}
	if snap.Logins["success"] != 2 || snap.Logins["rejected"] != 1 {
		t.Errorf("logins = %v", snap.Logins)
	}
	if snap.MessagesSent != 1 || snap.FanoutTotal != 3 {
		t.Errorf("messaging counters = %d/%d, want 1/3", snap.MessagesSent, snap.FanoutTotal)
	}
	if snap.SyncTicks["success"] != 1 || snap.SyncTicks["empty"] != 1 {
		t.Errorf("sync ticks = %v", snap.SyncTicks)
	}
	if snap.SyncDurationCount != 1 || snap.SyncDurationTotalNs != (10*time.Millisecond).Nanoseconds() {
		t.Errorf("sync duration = %d obs / %d ns", snap.SyncDurationCount, snap.SyncDurationTotalNs)
	}
	if snap.MessagesMerged != 5 {
		t.Errorf("merged = %d, want 5", snap.MessagesMerged)
	}
	if snap.Notifications != 1 {
		t.Errorf("notifications = %d, want 1", snap.Notifications)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncLogin("success")

	snap := m.Snapshot()
	snap.Logins["success"] = 100

	if m.Snapshot().Logins["success"] != 1 {
		t.Fatal("mutating a snapshot leaked into the recorder")
	}
}
