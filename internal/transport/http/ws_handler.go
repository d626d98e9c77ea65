package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// client is one websocket connection. A dedicated writer goroutine drains
// send so the connection is never written concurrently.
type client struct {
	id   string
	conn *websocket.Conn
	send chan app.Event

	// room/user this connection associated with via its join event; used
	// for cleanup on leave and disconnect.
	roomCode string
	userID   string
}

func (c *client) enqueue(event app.Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// WSHandler bridges per-connection realtime events to the lifecycle engine
// and the hub.
type WSHandler struct {
	service  *app.RoomService
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewWSHandler(service *app.RoomService, hub *Hub, log *zap.SugaredLogger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomRef struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

type roomJoinedPayload struct {
	RoomCode           string                `json:"roomCode"`
	Status             domain.RoomStatus     `json:"status"`
	Participants       []app.ParticipantView `json:"participants"`
	Total              int                   `json:"totalParticipants"`
	Questions          []domain.Question     `json:"quiz,omitempty"`
	SecondsPerQuestion int                   `json:"timePerQuestion,omitempty"`
	StartedAt          *time.Time            `json:"startedAt,omitempty"`
}

// ServeWS upgrades the request and runs the connection's event loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan app.Event, 16),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range c.send {
			if err := conn.WriteJSON(event); err != nil {
				h.log.Debugw("ws write error", "connID", c.id, "error", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			h.handleJoin(r.Context(), c, inbound.Payload)
		case "leave":
			h.handleLeave(r.Context(), c, inbound.Payload)
		default:
			c.enqueue(app.Event{Type: "error", Payload: app.NoticePayload{Message: "unsupported message type"}})
		}
	}

	// Transport-level disconnect: same cleanup as an explicit leave.
	h.cleanup(c)

	close(c.send)
	<-writerDone
	_ = conn.Close()
}

// handleJoin subscribes the connection, replies privately with the full
// current room state, then notifies the rest of the group. This is a
// presence join for realtime delivery; admission happens over HTTP.
func (h *WSHandler) handleJoin(ctx context.Context, c *client, payload json.RawMessage) {
	var ref roomRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.RoomCode == "" {
		c.enqueue(app.Event{Type: "error", Payload: app.NoticePayload{Message: "invalid join payload"}})
		return
	}

	room, _, err := h.service.GetRoom(ctx, ref.RoomCode)
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.roomCode = ref.RoomCode
	c.userID = ref.UserID
	h.hub.Subscribe(ref.RoomCode, c)

	joined := roomJoinedPayload{
		RoomCode:     room.Code,
		Status:       room.Status,
		Participants: app.ParticipantViews(room.Participants),
		Total:        len(room.Participants),
	}
	if room.Status == domain.StatusActive {
		joined.Questions = room.Quiz.Questions
		joined.SecondsPerQuestion = room.Settings.SecondsPerQuestion
		joined.StartedAt = room.StartedAt
	}
	c.enqueue(app.Event{Type: "roomJoined", Payload: joined})

	// Late joiners on an active room get the start signal replayed so every
	// client converges on the same state machine.
	if room.Status == domain.StatusActive {
		c.enqueue(app.Event{Type: app.EventStarted, Payload: app.StartedPayload{
			Questions:          room.Quiz.Questions,
			SecondsPerQuestion: room.Settings.SecondsPerQuestion,
		}})
	}

	h.hub.PublishExcept(ref.RoomCode, c, app.Event{Type: app.EventParticipantsChanged, Payload: app.ParticipantsPayload{
		Participants: app.ParticipantViews(room.Participants),
		Total:        len(room.Participants),
	}})
}

func (h *WSHandler) handleLeave(ctx context.Context, c *client, payload json.RawMessage) {
	var ref roomRef
	if err := json.Unmarshal(payload, &ref); err != nil || ref.RoomCode == "" {
		c.enqueue(app.Event{Type: "error", Payload: app.NoticePayload{Message: "invalid leave payload"}})
		return
	}

	h.hub.Unsubscribe(ref.RoomCode, c)
	if c.roomCode == ref.RoomCode {
		c.roomCode = ""
	}
	if ref.UserID == "" {
		return
	}
	if err := h.service.LeaveRoom(ctx, ref.RoomCode, ref.UserID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		h.sendError(c, err)
	}
}

// cleanup runs on disconnect using whatever room/user the connection had
// associated with itself. Idempotent with an earlier explicit leave.
func (h *WSHandler) cleanup(c *client) {
	if c.roomCode == "" {
		return
	}
	h.hub.Unsubscribe(c.roomCode, c)
	if c.userID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.service.LeaveRoom(ctx, c.roomCode, c.userID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		h.log.Warnw("disconnect cleanup failed", "roomCode", c.roomCode, "userId", c.userID, "error", err)
	}
}

// sendError converts an engine failure into a private error event. The
// connection and the rest of the room are unaffected.
func (h *WSHandler) sendError(c *client, err error) {
	msg := "internal error"
	if clientFacing(err) {
		msg = err.Error()
	} else {
		h.log.Errorw("ws operation failed", "connID", c.id, "error", err)
	}
	c.enqueue(app.Event{Type: "error", Payload: app.NoticePayload{Message: msg}})
}

func clientFacing(err error) bool {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return true
	}
	for _, known := range []error{
		domain.ErrRoomNotFound, domain.ErrRoomClosed, domain.ErrRoomFull,
		domain.ErrAlreadyJoined, domain.ErrAlreadySubmitted, domain.ErrNotParticipant,
		domain.ErrForbidden, domain.ErrInvalidState, domain.ErrQuizNotReady,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
