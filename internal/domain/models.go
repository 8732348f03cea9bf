package domain

import "time"

// Tier is a participant's fixed difficulty bucket. It is assigned once at
// registration and segregates both question visibility and ranking.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
)

// Participant holds a contestant's cumulative scoring state. Only the
// submission ledger mutates it.
type Participant struct {
	ID               string
	DisplayName      string
	Tier             Tier
	Score            int
	SolveCount       int
	RegisteredAt     time.Time
	LastSubmissionAt time.Time
}

// Question is a scored challenge. Points decay after each first correct
// solve and never increase.
type Question struct {
	ID          string
	CategoryID  string
	Title       string
	Answer      string `json:"-"`
	Points      int
	Tier        Tier
	SolvedCount int
}

// Submission is an immutable audit record, one row per attempt.
// SubmittedAnswer is kept for correct solves only.
type Submission struct {
	ID              string
	ParticipantID   string
	QuestionID      string
	Correct         bool
	SubmittedAnswer string
	SubmittedAt     time.Time
}

// SubmissionResult summarizes the outcome of a single Submit call.
type SubmissionResult struct {
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	Awarded  int  `json:"awarded"`
	NewScore int  `json:"newScore"`
}

// RankingEntry is a derived view of one participant within a tier; it is
// computed on demand and never stored.
type RankingEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	SolveCount    int    `json:"solveCount"`
	Tier          Tier   `json:"tier"`
}

// RankingSnapshot captures the ordered scoreboard for one tier at a point
// in time.
type RankingSnapshot struct {
	Tier      Tier           `json:"tier"`
	Entries   []RankingEntry `json:"entries"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SolveNotice is the event payload emitted after a committed correct solve.
type SolveNotice struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	QuestionID    string    `json:"questionId"`
	QuestionTitle string    `json:"questionTitle"`
	Awarded       int       `json:"awarded"`
	Tier          Tier      `json:"tier"`
	OccurredAt    time.Time `json:"occurredAt"`
}
