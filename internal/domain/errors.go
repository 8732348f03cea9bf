package domain

import "errors"

var (
	// ErrParticipantNotFound is returned when a submission references an unknown participant.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrQuestionNotFound is returned when a submission references an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAlreadySolved rejects re-submissions for a pair that already has a correct solve.
	ErrAlreadySolved = errors.New("question already solved")
	// ErrValidation rejects submissions with missing fields before any transaction starts.
	ErrValidation = errors.New("invalid submission")
	// ErrConflict signals concurrent-write contention; retried internally, then surfaced as retryable.
	ErrConflict = errors.New("transient write conflict")
	// ErrStoreUnavailable signals the backing store is unreachable; nothing was committed.
	ErrStoreUnavailable = errors.New("store unavailable")
)
