// Package store holds all messages visible to the current session.
// The store is append-only and deduplicated by message identifier;
// nothing is evicted for the lifetime of the session.
package store

import (
	"sync"

	"github.com/mymail/mymail/internal/model"
)

// Store is the in-memory message store. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []model.Message
	seen     map[int64]struct{}
}

// New creates an empty message store.
func New() *Store {
	return &Store{seen: make(map[int64]struct{})}
}

// Append inserts messages whose identifiers are not already present,
// in the given order, and returns the number actually inserted.
// Re-delivery of an already-stored identifier is a silent no-op.
func (s *Store) Append(messages []model.Message) int {
	if len(messages) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, msg := range messages {
		if _, ok := s.seen[msg.ID]; ok {
			continue
		}
		s.seen[msg.ID] = struct{}{}
		s.messages = append(s.messages, msg)
		inserted++
	}
	return inserted
}

// Between returns, in insertion order, every message exchanged between
// users a and b: sent by one and addressed to the other. Broadcasts
// appear in the conversation between the sender and each recipient.
func (s *Store) Between(a, b int64) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0)
	for _, msg := range s.messages {
		if msg.Involves(a, b) {
			out = append(out, msg)
		}
	}
	return out
}

// All returns a copy of every stored message in insertion order.
func (s *Store) All() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear drops all messages. Called on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.messages = nil
	s.seen = make(map[int64]struct{})
	s.mu.Unlock()
}
