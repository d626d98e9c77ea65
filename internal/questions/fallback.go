package questions

import (
	"context"

	"quiz-room-service/internal/domain"
)

// BankProvider supplies the fallback question bank, keyed by difficulty.
type BankProvider interface {
	Bank(ctx context.Context) (map[domain.Difficulty][]domain.Question, error)
}

// StaticBank is a BankProvider backed by a fixed in-memory map.
type StaticBank struct {
	bank map[domain.Difficulty][]domain.Question
}

func NewStaticBank(bank map[domain.Difficulty][]domain.Question) *StaticBank {
	return &StaticBank{bank: bank}
}

func (b *StaticBank) Bank(context.Context) (map[domain.Difficulty][]domain.Question, error) {
	return b.bank, nil
}

// FallbackSource generates quizzes deterministically from a local bank.
// It cycles through the difficulty's questions to reach exactly the
// requested count and trims options down to the room's optionsPerQuestion,
// always keeping the correct option.
type FallbackSource struct {
	provider BankProvider
}

func NewFallbackSource(provider BankProvider) *FallbackSource {
	return &FallbackSource{provider: provider}
}

func (s *FallbackSource) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	bank, err := s.provider.Bank(ctx)
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: "fallback bank", Err: err}
	}

	pool, ok := bank[req.Difficulty]
	if !ok || len(pool) == 0 {
		pool = bank[domain.DifficultyMedium]
	}
	if len(pool) == 0 {
		return nil, &domain.ExternalServiceError{Op: "fallback bank", Err: domain.Validationf("no questions for difficulty %q", req.Difficulty)}
	}

	questions := make([]domain.Question, 0, req.QuestionCount)
	for i := 0; i < req.QuestionCount; i++ {
		questions = append(questions, trimOptions(pool[i%len(pool)], req.OptionsPerQuestion))
	}
	return questions, nil
}

// trimOptions narrows a question to at most n options. The correct option is
// always retained; remaining slots keep the original option order.
func trimOptions(q domain.Question, n int) domain.Question {
	if n <= 0 || len(q.Options) <= n {
		return q
	}
	options := make([]string, 0, n)
	hasCorrect := false
	for _, opt := range q.Options {
		remaining := n - len(options)
		if opt == q.CorrectOption {
			options = append(options, opt)
			hasCorrect = true
			continue
		}
		// Leave one slot for the correct option until it has been placed.
		if !hasCorrect && remaining <= 1 {
			continue
		}
		if len(options) < n {
			options = append(options, opt)
		}
	}
	q.Options = options
	return q
}
