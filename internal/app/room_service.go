package app

import (
	"context"
	"crypto/rand"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"quiz-room-service/internal/domain"
)

// RoomRepository abstracts how room documents are stored (in-memory, Redis).
// Rooms are always loaded and saved as whole documents.
type RoomRepository interface {
	Get(ctx context.Context, code string) (*domain.Room, error)
	Save(ctx context.Context, room *domain.Room) error
	Exists(ctx context.Context, code string) (bool, error)
}

// QuestionSource produces quiz content for a room's settings.
type QuestionSource interface {
	Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error)
}

// Broadcaster fans an event out to every connection subscribed to a room.
// The engine never sees individual connections.
type Broadcaster interface {
	Publish(roomCode string, event Event)
}

// NopBroadcaster discards events; useful for tests and tooling.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, Event) {}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomCodeLength = 6

// Creator identifies the authenticated user creating a room.
type Creator struct {
	ID   string
	Name string
}

// SubmissionResult is returned to the submitting participant so they don't
// need to re-fetch the room.
type SubmissionResult struct {
	Score          int                  `json:"score"`
	CorrectCount   int                  `json:"correctAnswers"`
	TotalQuestions int                  `json:"totalQuestions"`
	Leaderboard    []domain.RankedEntry `json:"leaderboard"`
}

// RoomService owns the room lifecycle: creation, admission, quiz generation,
// submission scoring, and leaderboard derivation.
type RoomService struct {
	rooms     RoomRepository
	primary   QuestionSource // AI-backed; may be nil
	fallback  QuestionSource
	broadcast Broadcaster
	log       *zap.SugaredLogger
	now       func() time.Time
	locks     *roomLocks
}

func NewRoomService(rooms RoomRepository, primary, fallback QuestionSource, broadcast Broadcaster, log *zap.SugaredLogger) *RoomService {
	if broadcast == nil {
		broadcast = NopBroadcaster{}
	}
	return &RoomService{
		rooms:     rooms,
		primary:   primary,
		fallback:  fallback,
		broadcast: broadcast,
		log:       log,
		now:       time.Now,
		locks:     newRoomLocks(),
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *RoomService) WithClock(now func() time.Time) *RoomService {
	s.now = now
	return s
}

// CreateRoom validates settings, draws a unique room code, and persists a
// fresh room with the creator enrolled as its first participant.
func (s *RoomService) CreateRoom(ctx context.Context, creator Creator, name string, settings domain.Settings) (*domain.Room, error) {
	if err := validateSettings(name, settings); err != nil {
		return nil, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &domain.Room{
		Code:        code,
		Name:        strings.TrimSpace(name),
		CreatorID:   creator.ID,
		CreatorName: creator.Name,
		Settings:    settings,
		Participants: []domain.Participant{{
			UserID:   creator.ID,
			Username: creator.Name,
		}},
		Quiz:      domain.Quiz{Questions: []domain.Question{}},
		Status:    domain.StatusWaiting,
		CreatedAt: s.now(),
	}
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, err
	}
	s.log.Infow("room created", "roomCode", code, "creator", creator.ID, "questions", settings.QuestionCount)
	return room, nil
}

// JoinRoom enrolls a user. Admission checks run in order: closed, full,
// already joined; the first failure wins.
func (s *RoomService) JoinRoom(ctx context.Context, code, userID, username string) (*domain.Room, error) {
	unlock := s.locks.acquire(code)
	defer unlock()

	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if room.Status == domain.StatusFinished {
		return nil, domain.ErrRoomClosed
	}
	if len(room.Participants) >= room.Settings.MaxParticipants {
		return nil, domain.ErrRoomFull
	}
	if room.Participant(userID) != nil {
		return nil, domain.ErrAlreadyJoined
	}

	room.Participants = append(room.Participants, domain.Participant{
		UserID:   userID,
		Username: username,
	})
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, err
	}

	s.broadcast.Publish(code, Event{Type: EventParticipantsChanged, Payload: ParticipantsPayload{
		Participants: ParticipantViews(room.Participants),
		Total:        len(room.Participants),
	}})
	return room, nil
}

// StartQuiz transitions a waiting room to active, generating its quiz
// exactly once. The room lock is held for the whole generation-and-save span
// so a concurrent second start waits, then observes the generated quiz and
// returns it without re-invoking the question source.
func (s *RoomService) StartQuiz(ctx context.Context, code, requesterID string) (*domain.Room, error) {
	unlock := s.locks.acquire(code)
	defer unlock()

	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.CreatorID != requesterID {
		return nil, domain.ErrForbidden
	}
	switch room.Status {
	case domain.StatusWaiting:
	case domain.StatusActive:
		if room.Quiz.Generated {
			return room, nil
		}
		return nil, domain.ErrInvalidState
	default:
		return nil, domain.ErrInvalidState
	}

	if !room.Quiz.Generated {
		questions, err := s.generate(ctx, room)
		if err != nil {
			s.broadcast.Publish(code, Event{Type: EventGenerationFailed, Payload: NoticePayload{
				Message: "Failed to generate quiz. Please try again.",
			}})
			return nil, err
		}
		room.Quiz.Questions = questions
		room.Quiz.Generated = true
	}

	started := s.now()
	room.Status = domain.StatusActive
	room.StartedAt = &started
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, err
	}

	s.broadcast.Publish(code, Event{Type: EventStarted, Payload: StartedPayload{
		Questions:          room.Quiz.Questions,
		SecondsPerQuestion: room.Settings.SecondsPerQuestion,
	}})
	s.log.Infow("quiz started", "roomCode", code, "questions", len(room.Quiz.Questions))
	return room, nil
}

// generate tries the primary (AI) source and falls back to the local bank on
// any failure. It never returns a question list whose length differs from
// the room's questionCount.
func (s *RoomService) generate(ctx context.Context, room *domain.Room) ([]domain.Question, error) {
	code := room.Code
	req := domain.GenerationRequest{
		Difficulty:         room.Settings.Difficulty,
		Categories:         room.Settings.Categories,
		QuestionCount:      room.Settings.QuestionCount,
		OptionsPerQuestion: room.Settings.OptionsPerQuestion,
	}

	s.broadcast.Publish(code, Event{Type: EventGenerating, Payload: NoticePayload{
		Message: "Quiz is being generated, please wait...",
	}})

	if s.primary != nil {
		questions, err := s.primary.Generate(ctx, req)
		if err == nil && len(questions) == req.QuestionCount {
			s.broadcast.Publish(code, Event{Type: EventGenerating, Payload: NoticePayload{
				Message: "AI quiz generated! Starting quiz...",
			}})
			return questions, nil
		}
		if err == nil {
			err = domain.Validationf("expected %d questions, got %d", req.QuestionCount, len(questions))
		}
		s.log.Warnw("ai generation failed, using fallback bank", "roomCode", code, "error", err)
		s.broadcast.Publish(code, Event{Type: EventGenerating, Payload: NoticePayload{
			Message: "AI unavailable, using backup questions...",
		}})
	}

	questions, err := s.fallback.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(questions) != req.QuestionCount {
		return nil, &domain.ExternalServiceError{Op: "fallback", Err: domain.Validationf("bank produced %d of %d questions", len(questions), req.QuestionCount)}
	}
	return questions, nil
}

// SubmitAnswers scores a participant's full answer sheet exactly once.
// Answers are positional; an empty slot is recorded as the no-answer
// sentinel and counts as incorrect.
func (s *RoomService) SubmitAnswers(ctx context.Context, code, userID string, answers []string) (*SubmissionResult, error) {
	unlock := s.locks.acquire(code)
	defer unlock()

	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.Quiz.Generated || len(room.Quiz.Questions) == 0 {
		return nil, domain.ErrQuizNotReady
	}
	if len(answers) != len(room.Quiz.Questions) {
		return nil, domain.Validationf("expected %d answers, got %d", len(room.Quiz.Questions), len(answers))
	}
	participant := room.Participant(userID)
	if participant == nil {
		return nil, domain.ErrNotParticipant
	}
	if participant.Finished {
		return nil, domain.ErrAlreadySubmitted
	}

	correctCount := 0
	graded := make([]domain.Answer, 0, len(answers))
	for i, q := range room.Quiz.Questions {
		selected := answers[i]
		isCorrect := selected != "" && selected == q.CorrectOption
		if isCorrect {
			correctCount++
		}
		if selected == "" {
			selected = domain.NoAnswer
		}
		graded = append(graded, domain.Answer{
			QuestionIndex:  i,
			SelectedOption: selected,
			IsCorrect:      isCorrect,
		})
	}

	total := len(room.Quiz.Questions)
	completed := s.now()
	participant.Score = int(math.Round(float64(correctCount) / float64(total) * 100))
	participant.CorrectCount = correctCount
	participant.TotalQuestions = total
	participant.Answers = graded
	participant.Finished = true
	participant.CompletedAt = &completed

	if room.AllFinished() {
		room.Status = domain.StatusFinished
		room.FinishedAt = &completed
	}

	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, err
	}

	leaderboard := domain.Rank(room.Participants, room.StartedAt)
	s.broadcast.Publish(code, Event{Type: EventLeaderboardChanged, Payload: LeaderboardPayload{
		Leaderboard: leaderboard,
	}})

	return &SubmissionResult{
		Score:          participant.Score,
		CorrectCount:   correctCount,
		TotalQuestions: total,
		Leaderboard:    leaderboard,
	}, nil
}

// LeaveRoom drops a participant from the room, if present. It is idempotent:
// an explicit leave followed by a transport disconnect is a no-op the second
// time through.
func (s *RoomService) LeaveRoom(ctx context.Context, code, userID string) error {
	unlock := s.locks.acquire(code)
	defer unlock()

	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return err
	}

	kept := room.Participants[:0]
	for _, p := range room.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(room.Participants) {
		return nil
	}
	room.Participants = kept
	if err := s.rooms.Save(ctx, room); err != nil {
		return err
	}

	s.broadcast.Publish(code, Event{Type: EventParticipantsChanged, Payload: ParticipantsPayload{
		Participants: ParticipantViews(room.Participants),
		Total:        len(room.Participants),
	}})
	return nil
}

// GetRoom returns the room and its current computed leaderboard.
func (s *RoomService) GetRoom(ctx context.Context, code string) (*domain.Room, []domain.RankedEntry, error) {
	room, err := s.rooms.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return room, domain.Rank(room.Participants, room.StartedAt), nil
}

// uniqueCode draws room codes until one is free. Collisions are negligible
// at 36^6 but the store is still the source of truth.
func (s *RoomService) uniqueCode(ctx context.Context) (string, error) {
	for {
		code := randomCode(roomCodeLength)
		exists, err := s.rooms.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

func randomCode(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])%len(roomCodeAlphabet)]
	}
	return string(b)
}

func validateSettings(name string, settings domain.Settings) error {
	if strings.TrimSpace(name) == "" {
		return domain.Validationf("room name is required")
	}
	if len(settings.Categories) == 0 {
		return domain.Validationf("at least one category is required")
	}
	if !settings.Difficulty.Valid() {
		return domain.Validationf("difficulty must be easy, medium, or hard")
	}
	if settings.QuestionCount < 5 || settings.QuestionCount > 50 {
		return domain.Validationf("questionCount must be between 5 and 50")
	}
	if settings.OptionsPerQuestion < 2 || settings.OptionsPerQuestion > 6 {
		return domain.Validationf("optionsPerQuestion must be between 2 and 6")
	}
	if settings.SecondsPerQuestion < 10 || settings.SecondsPerQuestion > 120 {
		return domain.Validationf("secondsPerQuestion must be between 10 and 120")
	}
	if settings.MaxParticipants < 2 || settings.MaxParticipants > 100 {
		return domain.Validationf("maxParticipants must be between 2 and 100")
	}
	return nil
}
