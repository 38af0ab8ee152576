package chat

import (
	"encoding/json"
	"sync"

	"anotador/pkg/logger"
	"anotador/socket"
)

// Unread tracks the unread counter for one conversation. It is fed
// twice: seeded from the loaded message history, then incremented live
// by new_message envelopes from the peer.
type Unread struct {
	mu           sync.Mutex
	userID       string
	otherID      string
	count        int
	onNewMessage func(total int)
}

// NewUnread builds a counter for the conversation between userID (the
// viewer) and otherID (the peer). onNewMessage fires with the new
// total whenever the counter changes through a live message; it may be
// nil.
func NewUnread(userID, otherID string, onNewMessage func(total int)) *Unread {
	return &Unread{userID: userID, otherID: otherID, onNewMessage: onNewMessage}
}

// Seed counts the peer's unread messages in a freshly loaded history.
func (u *Unread) Seed(messages []Message) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count = 0
	for _, m := range messages {
		if m.SenderID == u.otherID && !m.Read {
			u.count++
		}
	}
	return u.count
}

// Bind subscribes the counter to new_message envelopes on the
// notifier. A message from the peer increments the counter by exactly
// one and fires the callback with the new total; anything else is
// ignored.
func (u *Unread) Bind(n *socket.Notifier) {
	n.On(socket.NewMessageType, func(env socket.Envelope) {
		var msg struct {
			SenderID   string `json:"sender_id"`
			ReceiverID string `json:"receiver_id"`
		}
		if err := json.Unmarshal(env.Message, &msg); err != nil {
			logger.Sugar.Errorf("malformed new_message payload: %v", err)
			return
		}
		if msg.SenderID != u.otherID || msg.ReceiverID != u.userID {
			return
		}

		u.mu.Lock()
		u.count++
		total := u.count
		fn := u.onNewMessage
		u.mu.Unlock()

		if fn != nil {
			fn(total)
		}
	})
}

// Count returns the current unread total.
func (u *Unread) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.count
}

// Reset zeroes the counter after the conversation is marked as read.
func (u *Unread) Reset() {
	u.mu.Lock()
	u.count = 0
	u.mu.Unlock()
}
