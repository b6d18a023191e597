// Package relay fans newly committed chat messages out to live subscribers.
// It is a convenience layer only: the database remains the system of record,
// and a missed delivery just means the recipient sees the message on its next
// read.
package relay

import (
	"sync"

	"github.com/psds-microservice/portal-service/internal/model"
)

type EventType string

const (
	// EventJoin is sent by clients to bind a connection to a session.
	EventJoin EventType = "join"
	// EventMessage carries a persisted message to subscribers.
	EventMessage EventType = "message"
)

// Event is the closed set of frames exchanged over the relay channel.
type Event struct {
	Type      EventType          `json:"type"`
	SessionID uint64             `json:"session_id,omitempty"`
	Message   *model.ChatMessage `json:"message,omitempty"`
}

// subscriberBuffer bounds how far a slow consumer may lag before publishes
// to it are dropped.
const subscriberBuffer = 16

// Hub is a per-session topic registry. Each subscriber owns a buffered
// channel; Publish never blocks on any of them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint64]map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[uint64]map[string]chan Event)}
}

// Join binds connID to the session's broadcast group and returns the channel
// events arrive on. Joining twice with the same connID replaces the previous
// subscription. There is no persisted side effect.
func (h *Hub) Join(sessionID uint64, connID string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[string]chan Event)
		h.sessions[sessionID] = subs
	}
	if old, ok := subs[connID]; ok {
		close(old)
	}
	subs[connID] = ch
	return ch
}

// Leave removes connID from the session's broadcast group and closes its
// channel. Leaving a session it never joined is a no-op.
func (h *Hub) Leave(sessionID uint64, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if ch, ok := subs[connID]; ok {
		close(ch)
		delete(subs, connID)
	}
	if len(subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// LeaveAll drops every subscription held by connID, for connection teardown.
func (h *Hub) LeaveAll(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, subs := range h.sessions {
		if ch, ok := subs[connID]; ok {
			close(ch)
			delete(subs, connID)
		}
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

// Publish fans a committed message out to every connection joined to its
// session. Delivery is at-most-once: a subscriber with a full buffer is
// skipped silently. Call only after the message is durably written.
// Publishes for one session happen under the lock, so subscribers observe
// them in commit order.
func (h *Hub) Publish(sessionID uint64, msg *model.ChatMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	ev := Event{Type: EventMessage, SessionID: sessionID, Message: msg}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers reports how many connections are joined to the session.
func (h *Hub) Subscribers(sessionID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
