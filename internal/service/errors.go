package service

import "errors"

var (
	ErrInsufficientContent = errors.New("not enough material to build a quiz")
	ErrEmptySession        = errors.New("quiz session has no questions")
	ErrInvalidActor        = errors.New("user does not own this quiz session")
	ErrAlreadyStarted      = errors.New("quiz session already started")
	ErrAlreadyRevealed     = errors.New("quiz session already revealed")
	ErrNotStarted          = errors.New("quiz session not started")
	ErrNotInProgress       = errors.New("quiz session is not accepting answers")
	ErrQuestionOutOfRange  = errors.New("question index out of range")
	ErrChoiceOutOfRange    = errors.New("choice index out of range")
	ErrSessionActive       = errors.New("user already has an active quiz session")
	ErrSessionNotFound     = errors.New("quiz session not found")
)
