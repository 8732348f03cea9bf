package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/domain"
)

func seededStore() *Store {
	store := NewStore()
	store.Seed(
		[]domain.Participant{
			{ID: "p1", DisplayName: "Alice", Tier: domain.TierBeginner, RegisteredAt: time.Unix(1000, 0)},
			{ID: "p2", DisplayName: "Bob", Tier: domain.TierBeginner, RegisteredAt: time.Unix(2000, 0)},
		},
		[]domain.Question{
			{ID: "q1", Title: "warmup", Answer: "42", Points: 100, Tier: domain.TierBeginner},
		},
	)
	return store
}

func TestTxCommitAppliesWrites(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		p, err := tx.Participant(ctx, "p1")
		if err != nil {
			return err
		}
		p.Score = 100
		return tx.SaveParticipant(ctx, p)
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	p, err := store.Participant(ctx, "p1")
	if err != nil {
		t.Fatalf("participant: %v", err)
	}
	if p.Score != 100 {
		t.Fatalf("expected committed score 100, got %d", p.Score)
	}
}

func TestTxConflictOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		if _, err := tx.Question(ctx, "q1"); err != nil {
			return err
		}
		// Another writer commits between our read and our commit.
		if err := store.RunInTx(ctx, func(ctx context.Context, inner app.Tx) error {
			q, err := inner.Question(ctx, "q1")
			if err != nil {
				return err
			}
			q.Points = 95
			return inner.SaveQuestion(ctx, q)
		}); err != nil {
			return err
		}
		return tx.SaveQuestion(ctx, domain.Question{ID: "q1", Points: 90})
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	q, err := store.Question(ctx, "q1")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Points != 95 {
		t.Fatalf("loser's write must not apply, points=%d", q.Points)
	}
}

func TestTxAbortDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		p, err := tx.Participant(ctx, "p1")
		if err != nil {
			return err
		}
		p.Score = 999
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if err := tx.AppendSubmission(ctx, domain.Submission{ID: "s1", ParticipantID: "p1", QuestionID: "q1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	p, _ := store.Participant(ctx, "p1")
	if p.Score != 0 {
		t.Fatalf("aborted tx leaked score %d", p.Score)
	}
	if len(store.Submissions()) != 0 {
		t.Fatalf("aborted tx leaked submissions")
	}
}

func TestSolvedLookupAndHistory(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		return tx.AppendSubmission(ctx, domain.Submission{
			ID: "s1", ParticipantID: "p1", QuestionID: "q1", Correct: true, SubmittedAt: time.Unix(3000, 0),
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	solved, err := store.IsSolved(ctx, "p1", "q1")
	if err != nil || !solved {
		t.Fatalf("expected pair solved, got %v err=%v", solved, err)
	}
	if solved, _ := store.IsSolved(ctx, "p2", "q1"); solved {
		t.Fatalf("wrong pair reported solved")
	}

	subs, err := store.CorrectSubmissions(ctx, "p1")
	if err != nil {
		t.Fatalf("correct submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].QuestionID != "q1" {
		t.Fatalf("unexpected history %+v", subs)
	}
}

func TestNotFoundErrors(t *testing.T) {
	ctx := context.Background()
	store := seededStore()

	if _, err := store.Participant(ctx, "ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found, got %v", err)
	}
	err := store.RunInTx(ctx, func(ctx context.Context, tx app.Tx) error {
		_, err := tx.Question(ctx, "ghost")
		return err
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}
