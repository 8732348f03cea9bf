package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"ctf-scoreboard-service/internal/domain"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID               string    `bun:"id,pk"`
	DisplayName      string    `bun:"display_name,notnull"`
	Tier             string    `bun:"tier,notnull"`
	Score            int       `bun:"score,notnull,default:0"`
	SolveCount       int       `bun:"solve_count,notnull,default:0"`
	RegisteredAt     time.Time `bun:"registered_at,notnull"`
	LastSubmissionAt time.Time `bun:"last_submission_at,nullzero"`
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:               r.ID,
		DisplayName:      r.DisplayName,
		Tier:             domain.Tier(r.Tier),
		Score:            r.Score,
		SolveCount:       r.SolveCount,
		RegisteredAt:     r.RegisteredAt,
		LastSubmissionAt: r.LastSubmissionAt,
	}
}

func participantFromDomain(p domain.Participant) participantRow {
	return participantRow{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Tier:             string(p.Tier),
		Score:            p.Score,
		SolveCount:       p.SolveCount,
		RegisteredAt:     p.RegisteredAt,
		LastSubmissionAt: p.LastSubmissionAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID          string `bun:"id,pk"`
	CategoryID  string `bun:"category_id,notnull"`
	Title       string `bun:"title,notnull"`
	Answer      string `bun:"answer,notnull"`
	Points      int    `bun:"points,notnull"`
	Tier        string `bun:"tier,notnull"`
	SolvedCount int    `bun:"solved_count,notnull,default:0"`
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:          r.ID,
		CategoryID:  r.CategoryID,
		Title:       r.Title,
		Answer:      r.Answer,
		Points:      r.Points,
		Tier:        domain.Tier(r.Tier),
		SolvedCount: r.SolvedCount,
	}
}

func questionFromDomain(q domain.Question) questionRow {
	return questionRow{
		ID:          q.ID,
		CategoryID:  q.CategoryID,
		Title:       q.Title,
		Answer:      q.Answer,
		Points:      q.Points,
		Tier:        string(q.Tier),
		SolvedCount: q.SolvedCount,
	}
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID              string    `bun:"id,pk"`
	ParticipantID   string    `bun:"participant_id,notnull"`
	QuestionID      string    `bun:"question_id,notnull"`
	Correct         bool      `bun:"correct,notnull"`
	SubmittedAnswer string    `bun:"submitted_answer,nullzero"`
	SubmittedAt     time.Time `bun:"submitted_at,notnull"`
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:              r.ID,
		ParticipantID:   r.ParticipantID,
		QuestionID:      r.QuestionID,
		Correct:         r.Correct,
		SubmittedAnswer: r.SubmittedAnswer,
		SubmittedAt:     r.SubmittedAt,
	}
}
