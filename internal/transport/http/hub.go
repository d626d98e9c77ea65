package http

import (
	"sync"

	"go.uber.org/zap"

	"quiz-room-service/internal/app"
)

// Hub maps room codes to the live connections subscribed to them and
// implements app.Broadcaster. It is mutated only by join/leave/disconnect;
// the lifecycle engine never reads it.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	log   *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log,
	}
}

// Subscribe adds a connection to a room's broadcast group.
func (h *Hub) Subscribe(roomCode string, c *client) {
	h.mu.Lock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*client]struct{})
	}
	h.rooms[roomCode][c] = struct{}{}
	h.mu.Unlock()
}

// Unsubscribe removes a connection from a room's group. Safe to call twice.
func (h *Hub) Unsubscribe(roomCode string, c *client) {
	h.mu.Lock()
	if subs, ok := h.rooms[roomCode]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	h.mu.Unlock()
}

// Publish fans an event out to every connection in the room's group.
func (h *Hub) Publish(roomCode string, event app.Event) {
	h.publish(roomCode, nil, event)
}

// PublishExcept fans out to everyone in the group except one connection,
// used when the originator already received a private reply.
func (h *Hub) PublishExcept(roomCode string, except *client, event app.Event) {
	h.publish(roomCode, except, event)
}

func (h *Hub) publish(roomCode string, except *client, event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomCode] {
		if c == except {
			continue
		}
		if !c.enqueue(event) {
			h.log.Warnw("dropping event for slow connection", "roomCode", roomCode, "connID", c.id, "event", event.Type)
		}
	}
}
