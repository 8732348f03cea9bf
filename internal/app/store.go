package app

import (
	"context"

	"ctf-scoreboard-service/internal/domain"
)

// Store is the durable ledger of participants, questions, and submission
// attempts. RunInTx must provide serializable semantics: two transactions
// that read-then-write the same participant or question cannot both commit,
// the loser fails with domain.ErrConflict and is retried by the ledger.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Participant(ctx context.Context, id string) (domain.Participant, error)
	Question(ctx context.Context, id string) (domain.Question, error)
	ParticipantsByTier(ctx context.Context, tier domain.Tier) ([]domain.Participant, error)

	// IsSolved reports whether a correct submission exists for the pair.
	IsSolved(ctx context.Context, participantID, questionID string) (bool, error)
	// CorrectSubmissions lists a participant's correct solves, newest first.
	CorrectSubmissions(ctx context.Context, participantID string) ([]domain.Submission, error)
}

// Tx is the mutation surface available inside a ledger transaction.
// All writes are applied atomically on commit or not at all.
type Tx interface {
	Participant(ctx context.Context, id string) (domain.Participant, error)
	Question(ctx context.Context, id string) (domain.Question, error)
	HasCorrectSubmission(ctx context.Context, participantID, questionID string) (bool, error)
	SaveParticipant(ctx context.Context, p domain.Participant) error
	SaveQuestion(ctx context.Context, q domain.Question) error
	AppendSubmission(ctx context.Context, sub domain.Submission) error
}
