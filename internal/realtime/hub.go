// Package realtime implements push delivery of Q&A state changes to
// connected clients: an in-process SSE hub plus an optional broker bridge
// that mirrors events between server instances.
//
// Delivery is at-most-once and best-effort. A client that misses an event
// re-fetches full state on reconnect; the stream is a hint to refresh, never
// the source of truth.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/confly-app/apiserver/types"
)

// subscriberBuffer is the per-client queue depth. A client that cannot drain
// this many frames is treated as disconnected and dropped.
const subscriberBuffer = 16

// Subscriber is one connected client's stream. Frames arrive on C already
// serialised; the channel is closed when the hub drops the subscriber.
type Subscriber struct {
	C         chan []byte
	sessionID string
}

// SessionID returns the session this subscriber listens on.
func (s *Subscriber) SessionID() string {
	return s.sessionID
}

// Hub keeps, per session id, the set of open subscriptions. It is plain
// process-local state: rebuilt empty on restart, clients reconnect.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*Subscriber]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Subscriber]struct{}),
		logger:   logger,
	}
}

// Subscribe registers a new client stream for the session and queues the
// initial "connected" acknowledgment on it.
func (h *Hub) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{
		C:         make(chan []byte, subscriberBuffer),
		sessionID: sessionID,
	}

	ack, err := json.Marshal(types.Event{
		Type: types.EventConnected,
		Data: map[string]string{"sessionId": sessionID},
	})
	if err == nil {
		sub.C <- ack
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[sessionID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.sessions[sessionID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Unsubscribe deregisters a client stream. Safe to call after the hub has
// already dropped the subscriber. An emptied session entry is removed so the
// registry never grows without bound.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscriber) {
	subs, ok := h.sessions[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.C)
	if len(subs) == 0 {
		delete(h.sessions, sub.sessionID)
	}
}

// Publish writes a serialised event to every subscriber of the session. A
// subscriber whose queue is full is dropped and delivery continues with the
// rest; one stuck client must not block the others.
func (h *Hub) Publish(sessionID string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishLocked(h.sessions[sessionID], frame)
}

// Broadcast writes a serialised event to every subscriber of every session.
// Used for user-scoped events such as display-name changes.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.sessions {
		h.publishLocked(subs, frame)
	}
}

func (h *Hub) publishLocked(subs map[*Subscriber]struct{}, frame []byte) {
	for sub := range subs {
		select {
		case sub.C <- frame:
		default:
			h.logger.Warn("dropping slow subscriber", "session", sub.sessionID)
			h.dropLocked(sub)
		}
	}
}

// SubscriberCount reports how many clients listen on a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

// SessionCount reports how many sessions currently have subscribers.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
