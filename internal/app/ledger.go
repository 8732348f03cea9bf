// Package app contains the competition core: the submission ledger that
// decides whether an attempt counts, the ranking index derived from
// participant state, and the projector that bridges committed solves to the
// broadcast bus.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/metrics"
	"ctf-scoreboard-service/internal/scoring"
)

// maxConflictRetries bounds how often a serialization failure is retried
// before it is surfaced to the caller as retryable.
const maxConflictRetries = 3

// SolvePublisher receives the notice for every committed correct solve.
// Publish failures never affect the submission outcome.
type SolvePublisher interface {
	PublishSolveRecorded(notice domain.SolveNotice) error
}

// Ledger orchestrates the check-then-act submission transaction.
type Ledger struct {
	store     Store
	policy    scoring.Policy
	publisher SolvePublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

func NewLedger(store Store, policy scoring.Policy, publisher SolvePublisher, m *metrics.Metrics, log *slog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		policy:    policy,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Submit records one answer attempt. Exactly one concurrent caller for a
// (participant, question) pair can be credited; every later attempt for a
// solved pair is rejected with domain.ErrAlreadySolved and has no side
// effects. A wrong answer is a normal outcome, not an error: it is logged
// to the ledger and returned as Correct=false.
func (l *Ledger) Submit(ctx context.Context, participantID, questionID, answer string) (domain.SubmissionResult, error) {
	if participantID == "" || questionID == "" || answer == "" {
		l.count(metrics.OutcomeRejected)
		return domain.SubmissionResult{}, fmt.Errorf("%w: participant, question, and answer are required", domain.ErrValidation)
	}

	var (
		result domain.SubmissionResult
		notice domain.SolveNotice
	)
	attempt := func(ctx context.Context, tx Tx) error {
		participant, err := tx.Participant(ctx, participantID)
		if err != nil {
			return err
		}
		question, err := tx.Question(ctx, questionID)
		if err != nil {
			return err
		}

		solved, err := tx.HasCorrectSubmission(ctx, participantID, questionID)
		if err != nil {
			return err
		}
		if solved {
			return domain.ErrAlreadySolved
		}

		now := l.now()
		if question.Answer != answer {
			sub := domain.Submission{
				ID:            l.newID(),
				ParticipantID: participantID,
				QuestionID:    questionID,
				Correct:       false,
				SubmittedAt:   now,
			}
			if err := tx.AppendSubmission(ctx, sub); err != nil {
				return err
			}
			result = domain.SubmissionResult{Accepted: true, Correct: false, NewScore: participant.Score}
			return nil
		}

		// Award the value the question holds right now; later decay never
		// revises past awards.
		awarded := question.Points
		participant.Score += awarded
		participant.SolveCount++
		participant.LastSubmissionAt = now
		question.Points = l.policy.Decay(question.Points)
		question.SolvedCount++

		if err := tx.SaveParticipant(ctx, participant); err != nil {
			return err
		}
		if err := tx.SaveQuestion(ctx, question); err != nil {
			return err
		}
		if err := tx.AppendSubmission(ctx, domain.Submission{
			ID:              l.newID(),
			ParticipantID:   participantID,
			QuestionID:      questionID,
			Correct:         true,
			SubmittedAnswer: answer,
			SubmittedAt:     now,
		}); err != nil {
			return err
		}

		result = domain.SubmissionResult{Accepted: true, Correct: true, Awarded: awarded, NewScore: participant.Score}
		notice = domain.SolveNotice{
			ParticipantID: participant.ID,
			DisplayName:   participant.DisplayName,
			QuestionID:    question.ID,
			QuestionTitle: question.Title,
			Awarded:       awarded,
			Tier:          participant.Tier,
			OccurredAt:    now,
		}
		return nil
	}

	var err error
	for tries := 0; ; tries++ {
		err = l.store.RunInTx(ctx, attempt)
		if errors.Is(err, domain.ErrConflict) && tries < maxConflictRetries {
			continue
		}
		break
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadySolved):
			l.count(metrics.OutcomeAlreadySolved)
			return domain.SubmissionResult{Accepted: false}, err
		case errors.Is(err, domain.ErrConflict):
			l.count(metrics.OutcomeConflict)
		default:
			l.count(metrics.OutcomeError)
		}
		return domain.SubmissionResult{}, err
	}

	if result.Correct {
		l.count(metrics.OutcomeCorrect)
		l.notify(notice)
	} else {
		l.count(metrics.OutcomeIncorrect)
	}
	return result, nil
}

// notify hands the solve off the hot path; the projector picks it up to
// refresh the ranking and fan out to viewers.
func (l *Ledger) notify(notice domain.SolveNotice) {
	if l.publisher == nil {
		return
	}
	go func() {
		if err := l.publisher.PublishSolveRecorded(notice); err != nil {
			l.log.Error("publish solve", "participant", notice.ParticipantID, "question", notice.QuestionID, "error", err)
		}
	}()
}

func (l *Ledger) count(outcome string) {
	if l.metrics != nil {
		l.metrics.ObserveSubmission(outcome)
	}
}

// IsSolved reports whether a participant already has a correct solve for
// a question.
func (l *Ledger) IsSolved(ctx context.Context, participantID, questionID string) (bool, error) {
	return l.store.IsSolved(ctx, participantID, questionID)
}

// SolvedQuestions lists the question ids a participant has solved, newest
// first.
func (l *Ledger) SolvedQuestions(ctx context.Context, participantID string) ([]string, error) {
	subs, err := l.store.CorrectSubmissions(ctx, participantID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.QuestionID)
	}
	return ids, nil
}
