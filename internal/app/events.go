package app

import "quiz-room-service/internal/domain"

// Event is an abstract room-scoped broadcast. The engine only emits these;
// resolving them to live connections is the broadcast layer's job.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	// EventGenerating is a progress notice while the quiz is being generated.
	EventGenerating = "generating"
	// EventStarted carries the authoritative quiz-start signal.
	EventStarted = "started"
	// EventParticipantsChanged fires on every join and leave.
	EventParticipantsChanged = "participantsChanged"
	// EventLeaderboardChanged fires on every accepted submission.
	EventLeaderboardChanged = "leaderboardChanged"
	// EventGenerationFailed fires only when the fallback bank itself cannot
	// produce the configured number of questions.
	EventGenerationFailed = "generationFailed"
)

// ParticipantView is the participant shape broadcast to rooms.
type ParticipantView struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Finished bool   `json:"isFinished"`
}

// ParticipantsPayload accompanies EventParticipantsChanged.
type ParticipantsPayload struct {
	Participants []ParticipantView `json:"participants"`
	Total        int               `json:"totalParticipants"`
}

// StartedPayload accompanies EventStarted.
type StartedPayload struct {
	Questions          []domain.Question `json:"quiz"`
	SecondsPerQuestion int               `json:"timePerQuestion"`
}

// NoticePayload accompanies EventGenerating and EventGenerationFailed.
type NoticePayload struct {
	Message string `json:"message"`
}

// LeaderboardPayload accompanies EventLeaderboardChanged.
type LeaderboardPayload struct {
	Leaderboard []domain.RankedEntry `json:"leaderboard"`
}

// ParticipantViews projects room participants into their broadcast shape.
func ParticipantViews(participants []domain.Participant) []ParticipantView {
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, ParticipantView{
			UserID:   p.UserID,
			Username: p.Username,
			Score:    p.Score,
			Finished: p.Finished,
		})
	}
	return views
}
