package domain

import "time"

// Difficulty selects which slice of the question bank (or AI prompt) a room uses.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the supported difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// RoomStatus is the room lifecycle state. Transitions are monotonic:
// waiting -> active -> finished.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)

// Settings are fixed at room creation and immutable afterwards.
type Settings struct {
	Categories         []string   `json:"categories"`
	Difficulty         Difficulty `json:"difficulty"`
	QuestionCount      int        `json:"questionCount"`
	OptionsPerQuestion int        `json:"optionsPerQuestion"`
	SecondsPerQuestion int        `json:"secondsPerQuestion"`
	MaxParticipants    int        `json:"maxParticipants"`
}

// Question is a single multiple-choice question. CorrectOption always equals
// one of Options.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

// Quiz is set exactly once per room and immutable afterwards.
type Quiz struct {
	Questions []Question `json:"questions"`
	Generated bool       `json:"generated"`
}

// Answer records one graded answer. SelectedOption holds the NoAnswer
// sentinel when the participant skipped the question.
type Answer struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption string `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

// NoAnswer is recorded in place of an empty submission slot.
const NoAnswer = "No answer"

// Participant tracks one enrolled user. Finished flips false->true exactly
// once; the score fields are only meaningful once it has.
type Participant struct {
	UserID         string     `json:"userId"`
	Username       string     `json:"username"`
	Score          int        `json:"score"`
	CorrectCount   int        `json:"correctCount"`
	TotalQuestions int        `json:"totalQuestions"`
	Answers        []Answer   `json:"answers,omitempty"`
	Finished       bool       `json:"isFinished"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Room is the persisted session document, stored and rewritten as a whole.
type Room struct {
	Code         string        `json:"roomCode"`
	Name         string        `json:"roomName"`
	CreatorID    string        `json:"createdBy"`
	CreatorName  string        `json:"creatorName"`
	Settings     Settings      `json:"settings"`
	Participants []Participant `json:"participants"`
	Quiz         Quiz          `json:"quiz"`
	Status       RoomStatus    `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	FinishedAt   *time.Time    `json:"finishedAt,omitempty"`
}

// Participant returns the enrolled participant with the given user id.
func (r *Room) Participant(userID string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].UserID == userID {
			return &r.Participants[i]
		}
	}
	return nil
}

// AllFinished reports whether every participant has submitted.
func (r *Room) AllFinished() bool {
	if len(r.Participants) == 0 {
		return false
	}
	for i := range r.Participants {
		if !r.Participants[i].Finished {
			return false
		}
	}
	return true
}

// GenerationRequest is what a question source needs to produce a quiz.
type GenerationRequest struct {
	Difficulty         Difficulty
	Categories         []string
	QuestionCount      int
	OptionsPerQuestion int
}
