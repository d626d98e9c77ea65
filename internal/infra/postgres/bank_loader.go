package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-room-service/internal/domain"
)

// BankLoader loads the fallback question bank from Postgres. Options are
// stored as a JSONB array per row.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) Bank(ctx context.Context) (map[domain.Difficulty][]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT difficulty, question, options, correct_answer FROM question_bank ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	defer rows.Close()

	bank := make(map[domain.Difficulty][]domain.Question)
	for rows.Next() {
		var (
			difficulty string
			text       string
			rawOptions []byte
			correct    string
		)
		if err := rows.Scan(&difficulty, &text, &rawOptions, &correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var options []string
		if err := json.Unmarshal(rawOptions, &options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		d := domain.Difficulty(difficulty)
		bank[d] = append(bank[d], domain.Question{
			Text:          text,
			Options:       options,
			CorrectOption: correct,
		})
	}
	return bank, rows.Err()
}
