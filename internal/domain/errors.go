package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session does not exist (or was discarded).
	ErrSessionNotFound = errors.New("game session not found")
	// ErrPoolExhausted signals that no unanswered questions remain for the category.
	ErrPoolExhausted = errors.New("question pool exhausted")
	// ErrUnknownCategory indicates the category has no questions at all.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoQuestion is returned for a guess before any question was generated.
	ErrNoQuestion = errors.New("no active question")
	// ErrOptionNotFound indicates a guess that is not one of the current options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAlreadyAnswered is returned for a second guess on the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAnswered is returned when moving on before answering.
	ErrNotAnswered = errors.New("question not answered yet")
	// ErrSessionOver is returned for input after the session has ended.
	ErrSessionOver = errors.New("game session is over")
	// ErrGameOverPending is returned while the game-over acknowledgement is showing.
	ErrGameOverPending = errors.New("game over in progress")
	// ErrInvalidSettings indicates a settings payload that failed validation.
	ErrInvalidSettings = errors.New("invalid settings")
)
