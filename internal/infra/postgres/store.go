// Package postgres is the durable ledger store. Submission transactions run
// at serializable isolation; postgres aborts one of two conflicting
// check-then-act transactions with SQLSTATE 40001, which surfaces as
// domain.ErrConflict and is retried by the ledger.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/domain"
)

type Store struct {
	db *bun.DB
}

// NewDB opens a bun database over the postgres wire driver.
func NewDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
	return mapError(err)
}

// mapError translates driver failures into the ledger's error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch code := pgErr.Field('C'); code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case "23505": // unique_violation on the one-correct-solve index
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		default:
			if len(code) >= 2 && code[:2] == "08" { // connection exceptions
				return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
			}
		}
	}
	return err
}

func (s *Store) Participant(ctx context.Context, id string) (domain.Participant, error) {
	return selectParticipant(ctx, s.db, id)
}

func (s *Store) Question(ctx context.Context, id string) (domain.Question, error) {
	return selectQuestion(ctx, s.db, id)
}

func (s *Store) ParticipantsByTier(ctx context.Context, tier domain.Tier) ([]domain.Participant, error) {
	var rows []participantRow
	if err := s.db.NewSelect().Model(&rows).Where("tier = ?", string(tier)).Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (s *Store) IsSolved(ctx context.Context, participantID, questionID string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("participant_id = ?", participantID).
		Where("question_id = ?", questionID).
		Where("correct").
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (s *Store) CorrectSubmissions(ctx context.Context, participantID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().Model(&rows).
		Where("participant_id = ?", participantID).
		Where("correct").
		Order("submitted_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type pgTx struct {
	tx bun.Tx
}

func (t *pgTx) Participant(ctx context.Context, id string) (domain.Participant, error) {
	return selectParticipant(ctx, t.tx, id)
}

func (t *pgTx) Question(ctx context.Context, id string) (domain.Question, error) {
	return selectQuestion(ctx, t.tx, id)
}

func (t *pgTx) HasCorrectSubmission(ctx context.Context, participantID, questionID string) (bool, error) {
	exists, err := t.tx.NewSelect().Model((*submissionRow)(nil)).
		Where("participant_id = ?", participantID).
		Where("question_id = ?", questionID).
		Where("correct").
		Exists(ctx)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (t *pgTx) SaveParticipant(ctx context.Context, p domain.Participant) error {
	row := participantFromDomain(p)
	_, err := t.tx.NewUpdate().Model(&row).WherePK().Exec(ctx)
	return mapError(err)
}

func (t *pgTx) SaveQuestion(ctx context.Context, q domain.Question) error {
	row := questionFromDomain(q)
	_, err := t.tx.NewUpdate().Model(&row).WherePK().Exec(ctx)
	return mapError(err)
}

func (t *pgTx) AppendSubmission(ctx context.Context, sub domain.Submission) error {
	row := submissionRow{
		ID:              sub.ID,
		ParticipantID:   sub.ParticipantID,
		QuestionID:      sub.QuestionID,
		Correct:         sub.Correct,
		SubmittedAnswer: sub.SubmittedAnswer,
		SubmittedAt:     sub.SubmittedAt,
	}
	_, err := t.tx.NewInsert().Model(&row).Exec(ctx)
	return mapError(err)
}

func selectParticipant(ctx context.Context, db bun.IDB, id string) (domain.Participant, error) {
	row := participantRow{ID: id}
	err := db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, mapError(err)
	}
	return row.toDomain(), nil
}

func selectQuestion(ctx context.Context, db bun.IDB, id string) (domain.Question, error) {
	row := questionRow{ID: id}
	err := db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, mapError(err)
	}
	return row.toDomain(), nil
}
