package domain

import (
	"math"
	"sort"
	"time"
)

// RankedEntry is one row of the computed leaderboard.
type RankedEntry struct {
	Rank             int       `json:"rank"`
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	Score            int       `json:"score"`
	CorrectCount     int       `json:"correctAnswers"`
	TotalQuestions   int       `json:"totalQuestions"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeTakenSeconds *int      `json:"timeTaken"`
}

// Rank derives the leaderboard from participant records: finished only,
// score descending, ties broken by earlier completion. Ranks are strictly
// positional starting at 1. The leaderboard is never persisted; it is always
// recomputed from this function.
func Rank(participants []Participant, startedAt *time.Time) []RankedEntry {
	finished := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.Finished {
			finished = append(finished, p)
		}
	}

	sort.SliceStable(finished, func(i, j int) bool {
		if finished[i].Score != finished[j].Score {
			return finished[i].Score > finished[j].Score
		}
		ci, cj := finished[i].CompletedAt, finished[j].CompletedAt
		if ci == nil || cj == nil {
			return cj == nil && ci != nil
		}
		return ci.Before(*cj)
	})

	entries := make([]RankedEntry, 0, len(finished))
	for i, p := range finished {
		entry := RankedEntry{
			Rank:           i + 1,
			UserID:         p.UserID,
			Username:       p.Username,
			Score:          p.Score,
			CorrectCount:   p.CorrectCount,
			TotalQuestions: p.TotalQuestions,
		}
		if p.CompletedAt != nil {
			entry.CompletedAt = *p.CompletedAt
			if startedAt != nil {
				secs := int(math.Round(p.CompletedAt.Sub(*startedAt).Seconds()))
				entry.TimeTakenSeconds = &secs
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
