package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
	"quiz-room-service/internal/infra/memory"
	"quiz-room-service/internal/questions"
)

func validSettings() domain.Settings {
	return domain.Settings{
		Categories:         []string{"science"},
		Difficulty:         domain.DifficultyMedium,
		QuestionCount:      5,
		OptionsPerQuestion: 4,
		SecondsPerQuestion: 30,
		MaxParticipants:    4,
	}
}

func newTestService(primary app.QuestionSource) *app.RoomService {
	fallback := questions.NewFallbackSource(questions.NewStaticBank(questions.DefaultBank()))
	return app.NewRoomService(memory.NewRoomStore(), primary, fallback, nil, zap.NewNop().Sugar())
}

// countingSource counts invocations and optionally fails every call.
type countingSource struct {
	calls int32
	fail  bool
	delay time.Duration
}

func (s *countingSource) Generate(_ context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail {
		return nil, &domain.ExternalServiceError{Op: "call", Err: errors.New("unavailable")}
	}
	out := make([]domain.Question, 0, req.QuestionCount)
	for i := 0; i < req.QuestionCount; i++ {
		out = append(out, domain.Question{
			Text:          fmt.Sprintf("q%d", i),
			Options:       []string{"A", "B"},
			CorrectOption: "A",
		})
	}
	return out, nil
}

func TestCreateRoomEnrollsCreatorFirst(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	room, err := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "Trivia Night", validSettings())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(room.Code) != 6 {
		t.Fatalf("expected 6-char code, got %q", room.Code)
	}
	if room.Status != domain.StatusWaiting {
		t.Fatalf("expected waiting, got %s", room.Status)
	}
	if len(room.Participants) != 1 || room.Participants[0].UserID != "u1" {
		t.Fatalf("expected creator as first participant, got %+v", room.Participants)
	}
	if room.Quiz.Generated || len(room.Quiz.Questions) != 0 {
		t.Fatalf("expected ungenerated quiz, got %+v", room.Quiz)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)
	creator := app.Creator{ID: "u1", Name: "Alice"}

	cases := []struct {
		name     string
		roomName string
		mutate   func(*domain.Settings)
	}{
		{"empty name", "  ", func(*domain.Settings) {}},
		{"no categories", "room", func(s *domain.Settings) { s.Categories = nil }},
		{"bad difficulty", "room", func(s *domain.Settings) { s.Difficulty = "nightmare" }},
		{"too few questions", "room", func(s *domain.Settings) { s.QuestionCount = 4 }},
		{"too many questions", "room", func(s *domain.Settings) { s.QuestionCount = 51 }},
		{"too few options", "room", func(s *domain.Settings) { s.OptionsPerQuestion = 1 }},
		{"too many options", "room", func(s *domain.Settings) { s.OptionsPerQuestion = 7 }},
		{"too little time", "room", func(s *domain.Settings) { s.SecondsPerQuestion = 9 }},
		{"too much time", "room", func(s *domain.Settings) { s.SecondsPerQuestion = 121 }},
		{"too few participants", "room", func(s *domain.Settings) { s.MaxParticipants = 1 }},
		{"too many participants", "room", func(s *domain.Settings) { s.MaxParticipants = 101 }},
	}
	for _, tc := range cases {
		settings := validSettings()
		tc.mutate(&settings)
		_, err := service.CreateRoom(ctx, creator, tc.roomName, settings)
		var validation *domain.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestJoinRoomAdmission(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	settings := validSettings()
	settings.MaxParticipants = 2
	room, err := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", settings)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.JoinRoom(ctx, room.Code, "u1", "Alice"); !errors.Is(err, domain.ErrAlreadyJoined) {
		t.Fatalf("expected already joined, got %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "u3", "Cara"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected room full, got %v", err)
	}
	if _, err := service.JoinRoom(ctx, "ZZZZZZ", "u3", "Cara"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestJoinRoomRejectedOnceFinished(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	settings := validSettings()
	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", settings)
	if _, err := service.StartQuiz(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	started, _, _ := service.GetRoom(ctx, room.Code)
	answers := make([]string, len(started.Quiz.Questions))
	if _, err := service.SubmitAnswers(ctx, room.Code, "u1", answers); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Sole participant finished, so the room is now closed.
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); !errors.Is(err, domain.ErrRoomClosed) {
		t.Fatalf("expected room closed, got %v", err)
	}
}

func TestStartQuizCreatorOnly(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.StartQuiz(ctx, room.Code, "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestStartQuizUsesFallbackOnSourceFailure(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{fail: true}
	service := newTestService(source)

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())
	started, err := service.StartQuiz(ctx, room.Code, "u1")
	if err != nil {
		t.Fatalf("start should recover via fallback, got %v", err)
	}
	if !started.Quiz.Generated || len(started.Quiz.Questions) != 5 {
		t.Fatalf("expected 5 fallback questions, got %d", len(started.Quiz.Questions))
	}
	if started.Status != domain.StatusActive || started.StartedAt == nil {
		t.Fatalf("expected active room with startedAt, got %+v", started)
	}
	for _, q := range started.Quiz.Questions {
		if len(q.Options) > 4 {
			t.Fatalf("expected options trimmed to 4, got %d", len(q.Options))
		}
	}
}

func TestStartQuizConcurrentGeneratesOnce(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{delay: 20 * time.Millisecond}
	service := newTestService(source)

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())

	var wg sync.WaitGroup
	results := make([]*domain.Room, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.StartQuiz(ctx, room.Code, "u1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("start %d: %v", i, errs[i])
		}
		if len(results[i].Quiz.Questions) != 5 {
			t.Fatalf("start %d: expected 5 questions, got %d", i, len(results[i].Quiz.Questions))
		}
	}
	if calls := atomic.LoadInt32(&source.calls); calls != 1 {
		t.Fatalf("expected exactly one source invocation, got %d", calls)
	}
}

func TestSubmitAnswersScoring(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{}
	service := newTestService(source)

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())
	started, err := service.StartQuiz(ctx, room.Code, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Correct answer is "A" for every generated question; answer 3 of 5.
	answers := []string{"A", "B", "A", "", "A"}
	result, err := service.SubmitAnswers(ctx, room.Code, "u1", answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.CorrectCount != 3 || result.TotalQuestions != 5 {
		t.Fatalf("expected 3/5 correct, got %d/%d", result.CorrectCount, result.TotalQuestions)
	}
	if result.Score != 60 {
		t.Fatalf("expected score 60, got %d", result.Score)
	}
	if len(result.Leaderboard) != 1 || result.Leaderboard[0].Rank != 1 {
		t.Fatalf("expected single ranked entry, got %+v", result.Leaderboard)
	}

	saved, _, _ := service.GetRoom(ctx, room.Code)
	p := saved.Participant("u1")
	if !p.Finished || p.CompletedAt == nil {
		t.Fatalf("expected finished participant, got %+v", p)
	}
	if len(p.Answers) != len(started.Quiz.Questions) {
		t.Fatalf("expected %d graded answers, got %d", len(started.Quiz.Questions), len(p.Answers))
	}
	if p.Answers[3].SelectedOption != domain.NoAnswer || p.Answers[3].IsCorrect {
		t.Fatalf("expected no-answer sentinel recorded incorrect, got %+v", p.Answers[3])
	}
}

func TestSubmitAnswersRoundsHalfUp(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&countingSource{})

	settings := validSettings()
	settings.QuestionCount = 8
	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", settings)
	if _, err := service.StartQuiz(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 3 of 8 is 37.5%; half rounds up.
	result, err := service.SubmitAnswers(ctx, room.Code, "u1", []string{"A", "A", "A", "B", "B", "B", "B", "B"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 38 {
		t.Fatalf("expected score 38, got %d", result.Score)
	}
}

func TestSubmitAnswersPreconditionOrder(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&countingSource{})

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())

	// Before generation: NotReady wins regardless of other problems.
	if _, err := service.SubmitAnswers(ctx, room.Code, "stranger", nil); !errors.Is(err, domain.ErrQuizNotReady) {
		t.Fatalf("expected quiz not ready, got %v", err)
	}

	if _, err := service.StartQuiz(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Wrong length in both directions names expected vs actual.
	for _, n := range []int{3, 7} {
		_, err := service.SubmitAnswers(ctx, room.Code, "u1", make([]string, n))
		var validation *domain.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected validation error for %d answers, got %v", n, err)
		}
		if validation.Msg != fmt.Sprintf("expected 5 answers, got %d", n) {
			t.Fatalf("unexpected message: %q", validation.Msg)
		}
	}

	if _, err := service.SubmitAnswers(ctx, room.Code, "stranger", make([]string, 5)); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("expected not a participant, got %v", err)
	}
}

func TestSubmitAnswersAcceptedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&countingSource{})

	settings := validSettings()
	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", settings)
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.StartQuiz(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	first, err := service.SubmitAnswers(ctx, room.Code, "u1", []string{"A", "A", "A", "A", "A"})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Score != 100 {
		t.Fatalf("expected 100, got %d", first.Score)
	}

	if _, err := service.SubmitAnswers(ctx, room.Code, "u1", []string{"B", "B", "B", "B", "B"}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected already submitted, got %v", err)
	}

	saved, _, _ := service.GetRoom(ctx, room.Code)
	if p := saved.Participant("u1"); p.Score != 100 {
		t.Fatalf("re-submission mutated score: %d", p.Score)
	}
}

func TestRoomFinishesWhenAllSubmit(t *testing.T) {
	ctx := context.Background()
	service := newTestService(&countingSource{})

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.StartQuiz(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	answers := []string{"A", "A", "A", "A", "A"}
	if _, err := service.SubmitAnswers(ctx, room.Code, "u1", answers); err != nil {
		t.Fatalf("submit u1: %v", err)
	}
	mid, _, _ := service.GetRoom(ctx, room.Code)
	if mid.Status != domain.StatusActive {
		t.Fatalf("expected still active, got %s", mid.Status)
	}

	if _, err := service.SubmitAnswers(ctx, room.Code, "u2", answers); err != nil {
		t.Fatalf("submit u2: %v", err)
	}
	done, _, _ := service.GetRoom(ctx, room.Code)
	if done.Status != domain.StatusFinished || done.FinishedAt == nil {
		t.Fatalf("expected finished room, got %s", done.Status)
	}
}

func TestLeaveRoomIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	room, _ := service.CreateRoom(ctx, app.Creator{ID: "u1", Name: "Alice"}, "room", validSettings())
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := service.LeaveRoom(ctx, room.Code, "u2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := service.LeaveRoom(ctx, room.Code, "u2"); err != nil {
		t.Fatalf("second leave should be a no-op: %v", err)
	}

	saved, _, _ := service.GetRoom(ctx, room.Code)
	if len(saved.Participants) != 1 || saved.Participants[0].UserID != "u1" {
		t.Fatalf("expected only creator remaining, got %+v", saved.Participants)
	}
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{fail: true}
	service := newTestService(source)

	settings := validSettings()
	settings.QuestionCount = 5
	settings.MaxParticipants = 2

	room, err := service.CreateRoom(ctx, app.Creator{ID: "creator", Name: "Alice"}, "finals", settings)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "u2", "Bob"); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if _, err := service.JoinRoom(ctx, room.Code, "u3", "Cara"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected third join rejected, got %v", err)
	}

	started, err := service.StartQuiz(ctx, room.Code, "creator")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(started.Quiz.Questions) != 5 {
		t.Fatalf("fallback must supply exactly 5 questions, got %d", len(started.Quiz.Questions))
	}

	answers := make([]string, 5)
	for i, q := range started.Quiz.Questions {
		answers[i] = q.CorrectOption
	}
	if _, err := service.SubmitAnswers(ctx, room.Code, "creator", answers); err != nil {
		t.Fatalf("creator submit: %v", err)
	}
	result, err := service.SubmitAnswers(ctx, room.Code, "u2", make([]string, 5))
	if err != nil {
		t.Fatalf("u2 submit: %v", err)
	}

	if len(result.Leaderboard) != 2 {
		t.Fatalf("expected 2 ranked entries, got %d", len(result.Leaderboard))
	}
	if result.Leaderboard[0].UserID != "creator" || result.Leaderboard[0].Score != 100 {
		t.Fatalf("expected creator leading with 100, got %+v", result.Leaderboard[0])
	}
	if result.Leaderboard[1].Rank != 2 || result.Leaderboard[1].Score != 0 {
		t.Fatalf("expected u2 ranked second with 0, got %+v", result.Leaderboard[1])
	}
}
