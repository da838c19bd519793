package models

import "time"

// Session lifecycle states.
const (
	SessionStateCreated   = 0
	SessionStateActive    = 1
	SessionStateCompleted = 2
	SessionStateHalted    = 3
)

// Session difficulty grades.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyHard      = "hard"
	DifficultyLegendary = "legendary"
)

// RiddleSession represents one riddle round: a fixed set of validated
// questions, a bounded number of participant slots and a prize pool funded
// by the burn protocol's reward share.
type RiddleSession struct {
	ID              string     `json:"id" db:"id"` // VARCHAR PK like RDL-20260101-A1B2C3
	Difficulty      string     `json:"difficulty" db:"difficulty"`
	State           int32      `json:"state" db:"state"`
	MaxSlots        int32      `json:"max_slots" db:"max_slots"`
	WinnerSlots     int32      `json:"winner_slots" db:"winner_slots"`
	PrizePool       int64      `json:"prize_pool" db:"prize_pool"`
	MintCost        int64      `json:"mint_cost" db:"mint_cost"`
	QuestionIDs     string     `json:"question_ids" db:"question_ids"` // CSV of question ids
	TotalMinted     int64      `json:"total_minted" db:"total_minted"`
	CompletedCount  int32      `json:"completed_count" db:"completed_count"`
	SuccessfulCount int32      `json:"successful_count" db:"successful_count"`
	MinSolveSecs    int64      `json:"min_solve_secs" db:"min_solve_secs"`
	DurationSecs    int64      `json:"duration_secs" db:"duration_secs"`
	CreatedBy       string     `json:"created_by" db:"created_by"`
	StartedAt       *time.Time `json:"started_at" db:"started_at"`
	Deadline        *time.Time `json:"deadline" db:"deadline"`
	EndedAt         *time.Time `json:"ended_at" db:"ended_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the session currently accepts gameplay.
func (s *RiddleSession) IsActive() bool {
	return s.State == SessionStateActive
}

// ParticipantRecord represents one account's seat in a session. The seat is
// minted by burning credit; an incomplete seat can be resold, carrying its
// attempt history to the new owner. AnswerHashes keeps the commitments of
// every submission for dispute audits; CheatScore accumulates per-record
// anti-cheat strikes.
type ParticipantRecord struct {
	ID            uint64     `json:"id" db:"id"`
	SessionID     string     `json:"session_id" db:"session_id"`
	Address       string     `json:"address" db:"address"`
	AttemptCount  int32      `json:"attempt_count" db:"attempt_count"`
	QuestionIndex int32      `json:"question_index" db:"question_index"`
	AnswerHashes  string     `json:"answer_hashes" db:"answer_hashes"` // CSV of submission commitments
	CheatScore    int32      `json:"cheat_score" db:"cheat_score"`
	Completed     bool       `json:"completed" db:"completed"`
	Successful    bool       `json:"successful" db:"successful"`
	SolveSeconds  *int64     `json:"solve_seconds" db:"solve_seconds"`
	PrizeAmount   int64      `json:"prize_amount" db:"prize_amount"`
	PrizeClaimed  bool       `json:"prize_claimed" db:"prize_claimed"`
	ResoldFrom    *string    `json:"resold_from" db:"resold_from"`
	JoinedAt      time.Time  `json:"joined_at" db:"joined_at"`
	CompletedAt   *time.Time `json:"completed_at" db:"completed_at"`
}

// Resellable reports whether the seat can still change hands.
func (p *ParticipantRecord) Resellable() bool {
	return !p.Completed
}
