// Package roster holds the client's latest known set of user records.
// The server is authoritative: every sync replaces the whole snapshot,
// no per-field merging.
package roster

import (
	"sync"

	"github.com/mymail/mymail/internal/model"
)

// Cache is the mutable roster snapshot. Safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	users []model.User
	byID  map[int64]int
}

// New creates an empty roster cache.
func New() *Cache {
	return &Cache{byID: make(map[int64]int)}
}

// Replace swaps in a new snapshot wholesale (last writer wins).
func (c *Cache) Replace(users []model.User) {
	snapshot := make([]model.User, len(users))
	copy(snapshot, users)

	byID := make(map[int64]int, len(snapshot))
	for i, u := range snapshot {
		byID[u.ID] = i
	}

	c.mu.Lock()
	c.users = snapshot
	c.byID = byID
	c.mu.Unlock()
}

// Snapshot returns a copy of the current roster in server order.
func (c *Cache) Snapshot() []model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.User, len(c.users))
	copy(out, c.users)
	return out
}

// Get returns the record for the given user ID.
func (c *Cache) Get(id int64) (model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return model.User{}, false
	}
	return c.users[i], true
}

// Others returns every record except the given user, preserving order.
// This is the contact list shown next to the chat pane.
func (c *Cache) Others(selfID int64) []model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.User, 0, len(c.users))
	for _, u := range c.users {
		if u.ID != selfID {
			out = append(out, u)
		}
	}
	return out
}

// Len returns the number of records in the snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.users)
}

// Clear drops the snapshot. Called on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.users = nil
	c.byID = make(map[int64]int)
	c.mu.Unlock()
}
