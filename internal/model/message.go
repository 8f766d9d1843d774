package model

import "slices"

// Message is a single chat or broadcast message. Messages are
// immutable and append-only: they are never edited or deleted.
// Identifiers are assigned by the server and are monotonically
// non-decreasing in arrival order.
type Message struct {
	ID         int64   `json:"id"`
	FromUserID int64   `json:"from_user_id"`
	ToUserIDs  []int64 `json:"to_user_ids"`
	Text       string  `json:"text"`

	// Timestamp is the client-supplied creation time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// SentTo reports whether the message is addressed to the given user.
func (m *Message) SentTo(userID int64) bool {
	return slices.Contains(m.ToUserIDs, userID)
}

// Involves reports whether the message belongs to the conversation
// between users a and b: sent by one of them and addressed to the
// other. A broadcast addressed to b counts toward the a/b
// conversation when a is the sender.
func (m *Message) Involves(a, b int64) bool {
	return (m.FromUserID == a && m.SentTo(b)) || (m.FromUserID == b && m.SentTo(a))
}

// Updates is the delta payload returned by the updates endpoint:
// a full roster snapshot plus messages newer than the requested
// high-water mark. The newMessages key is camelCase on the wire.
type Updates struct {
	Users       []User    `json:"users"`
	NewMessages []Message `json:"newMessages"`
}
