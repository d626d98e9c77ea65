package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// RoomHandler serves the quiz-room REST surface.
type RoomHandler struct {
	service       *app.RoomService
	log           *zap.SugaredLogger
	createLimiter *userLimiter
}

func NewRoomHandler(service *app.RoomService, log *zap.SugaredLogger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log,
		// a user creating more than a handful of rooms per minute is abuse
		createLimiter: newUserLimiter(rate.Every(10*time.Second), 5),
	}
}

// Register mounts the room routes on mux behind the auth middleware.
func (h *RoomHandler) Register(mux *http.ServeMux, secret string) {
	auth := RequireAuth(secret)
	mux.Handle("POST /quiz-room", auth(http.HandlerFunc(h.createRoom)))
	mux.Handle("POST /quiz-room/{code}/join", auth(http.HandlerFunc(h.joinRoom)))
	mux.Handle("GET /quiz-room/{code}", auth(http.HandlerFunc(h.getRoom)))
	mux.Handle("POST /quiz-room/{code}/start", auth(http.HandlerFunc(h.startQuiz)))
	mux.Handle("POST /quiz-room/{code}/submit", auth(http.HandlerFunc(h.submitAnswers)))
}

type createRoomRequest struct {
	Name               string   `json:"name"`
	Categories         []string `json:"categories"`
	Difficulty         string   `json:"difficulty"`
	QuestionCount      int      `json:"questionCount"`
	OptionsPerQuestion int      `json:"optionsPerQuestion"`
	SecondsPerQuestion int      `json:"secondsPerQuestion"`
	MaxParticipants    int      `json:"maxParticipants"`
}

type roomSummary struct {
	RoomCode           string   `json:"roomCode"`
	RoomName           string   `json:"roomName"`
	Categories         []string `json:"categories"`
	Difficulty         string   `json:"difficulty"`
	QuestionCount      int      `json:"questionCount"`
	OptionsPerQuestion int      `json:"optionsPerQuestion"`
	SecondsPerQuestion int      `json:"secondsPerQuestion"`
	MaxParticipants    int      `json:"maxParticipants"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *RoomHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	if !h.createLimiter.allow(user.UserID) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many rooms created, slow down"})
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.service.CreateRoom(r.Context(), app.Creator{ID: user.UserID, Name: user.Name}, req.Name, domain.Settings{
		Categories:         req.Categories,
		Difficulty:         domain.Difficulty(req.Difficulty),
		QuestionCount:      req.QuestionCount,
		OptionsPerQuestion: req.OptionsPerQuestion,
		SecondsPerQuestion: req.SecondsPerQuestion,
		MaxParticipants:    req.MaxParticipants,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Quiz room created successfully",
		"room":    summarize(room),
	})
}

func (h *RoomHandler) joinRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	room, err := h.service.JoinRoom(r.Context(), r.PathValue("code"), user.UserID, user.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Successfully joined room",
		"room": map[string]any{
			"roomCode":     room.Code,
			"roomName":     room.Name,
			"status":       room.Status,
			"participants": app.ParticipantViews(room.Participants),
		},
	})
}

func (h *RoomHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, leaderboard, err := h.service.GetRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"roomCode":     room.Code,
		"roomName":     room.Name,
		"createdBy":    room.CreatorID,
		"creatorName":  room.CreatorName,
		"settings":     room.Settings,
		"status":       room.Status,
		"participants": app.ParticipantViews(room.Participants),
		"quiz":         room.Quiz,
		"startedAt":    room.StartedAt,
		"finishedAt":   room.FinishedAt,
		"leaderboard":  leaderboard,
	})
}

func (h *RoomHandler) startQuiz(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	room, err := h.service.StartQuiz(r.Context(), r.PathValue("code"), user.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Quiz started successfully",
		"quiz":            room.Quiz.Questions,
		"timePerQuestion": room.Settings.SecondsPerQuestion,
	})
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

func (h *RoomHandler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answers == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answers must be an array"})
		return
	}

	result, err := h.service.SubmitAnswers(r.Context(), r.PathValue("code"), user.UserID, req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Answers submitted successfully",
		"score":          result.Score,
		"correctAnswers": result.CorrectCount,
		"totalQuestions": result.TotalQuestions,
		"leaderboard":    result.Leaderboard,
	})
}

// writeError maps the error taxonomy onto HTTP statuses. Unexpected errors
// are logged and reported without internal detail.
func (h *RoomHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case clientFacing(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.log.Errorw("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func summarize(room *domain.Room) roomSummary {
	return roomSummary{
		RoomCode:           room.Code,
		RoomName:           room.Name,
		Categories:         room.Settings.Categories,
		Difficulty:         string(room.Settings.Difficulty),
		QuestionCount:      room.Settings.QuestionCount,
		OptionsPerQuestion: room.Settings.OptionsPerQuestion,
		SecondsPerQuestion: room.Settings.SecondsPerQuestion,
		MaxParticipants:    room.Settings.MaxParticipants,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
