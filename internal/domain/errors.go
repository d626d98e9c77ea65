package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound is returned when no room exists for a code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomClosed is returned when joining a finished room.
	ErrRoomClosed = errors.New("room is closed")
	// ErrRoomFull is returned when a room is at maxParticipants.
	ErrRoomFull = errors.New("room is full")
	// ErrAlreadyJoined is returned when a user is already enrolled.
	ErrAlreadyJoined = errors.New("already joined this room")
	// ErrAlreadySubmitted is returned when a participant re-submits answers.
	ErrAlreadySubmitted = errors.New("answers already submitted")
	// ErrNotParticipant is returned when a user acts in a room they never joined.
	ErrNotParticipant = errors.New("not a participant in this room")
	// ErrForbidden is returned when someone other than the creator starts the quiz.
	ErrForbidden = errors.New("only the room creator can start the quiz")
	// ErrInvalidState is returned when an operation is not valid for the
	// room's current status.
	ErrInvalidState = errors.New("operation not valid in current room status")
	// ErrQuizNotReady is returned when answers arrive before generation.
	ErrQuizNotReady = errors.New("quiz not generated yet")
)

// ValidationError reports malformed or out-of-range client input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a question source failure. It is always
// recovered locally via the fallback bank and never surfaced to callers as a
// hard failure for startQuiz.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("question source %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
