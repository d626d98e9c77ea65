package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quiz-room-service/internal/domain"
)

// AIConfig configures the chat-completions question source.
type AIConfig struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AISource generates quizzes through a chat-completions API. Every failure
// mode (transport, status, parse, schema) collapses into an
// ExternalServiceError so the caller can fall back.
type AISource struct {
	cfg    AIConfig
	client *http.Client
}

func NewAISource(cfg AIConfig) *AISource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &AISource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// wireQuestion is the JSON shape the model is asked to produce.
type wireQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

func (s *AISource) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt(req)}},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ExternalServiceError{Op: "call", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ExternalServiceError{Op: "call", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &domain.ExternalServiceError{Op: "decode response", Err: err}
	}
	if len(chat.Choices) == 0 {
		return nil, &domain.ExternalServiceError{Op: "decode response", Err: fmt.Errorf("no choices in response")}
	}

	return parseQuestions(chat.Choices[0].Message.Content, req)
}

// parseQuestions strictly decodes the model output as a JSON array of
// questions and validates it against the request. No free-text extraction:
// anything that isn't the expected schema is a source failure.
func parseQuestions(content string, req domain.GenerationRequest) ([]domain.Question, error) {
	var wire []wireQuestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &wire); err != nil {
		return nil, &domain.ExternalServiceError{Op: "parse content", Err: err}
	}
	if len(wire) != req.QuestionCount {
		return nil, &domain.ExternalServiceError{Op: "validate content", Err: fmt.Errorf("expected %d questions, got %d", req.QuestionCount, len(wire))}
	}

	questions := make([]domain.Question, 0, len(wire))
	for i, w := range wire {
		if strings.TrimSpace(w.Question) == "" {
			return nil, &domain.ExternalServiceError{Op: "validate content", Err: fmt.Errorf("question %d has no text", i)}
		}
		if len(w.Options) < 2 || len(w.Options) > 6 {
			return nil, &domain.ExternalServiceError{Op: "validate content", Err: fmt.Errorf("question %d has %d options", i, len(w.Options))}
		}
		if !contains(w.Options, w.CorrectAnswer) {
			return nil, &domain.ExternalServiceError{Op: "validate content", Err: fmt.Errorf("question %d correct answer not among options", i)}
		}
		questions = append(questions, domain.Question{
			Text:          w.Question,
			Options:       w.Options,
			CorrectOption: w.CorrectAnswer,
		})
	}
	return questions, nil
}

func prompt(req domain.GenerationRequest) string {
	return fmt.Sprintf(
		"Generate a %s level multiple-choice quiz with %d questions. "+
			"Each question should have %d answer options. "+
			"The quiz should be based on these categories: %s. "+
			"Questions should be non-repetitive and cover a wide range of topics within the categories. "+
			"Respond with only a JSON array of objects with \"question\", \"options\", and \"correct_answer\" fields, without extra text.",
		req.Difficulty, req.QuestionCount, req.OptionsPerQuestion, strings.Join(req.Categories, ", "),
	)
}

func contains(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
