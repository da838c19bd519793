package models

import "time"

// Account tier constants, ordered by reputation thresholds.
const (
	TierNewcomer = 0
	TierSolver   = 1
	TierExpert   = 2
	TierOracle   = 3
)

// Account represents a participant identity with its two balances: the
// spendable credit balance and the earned, non-transferable reputation.
type Account struct {
	Address             string     `json:"address" db:"address"`
	SpendableBalance    int64      `json:"spendable_balance" db:"spendable_balance"`
	ReputationBalance   int64      `json:"reputation_balance" db:"reputation_balance"`
	CorrectCount        int64      `json:"correct_count" db:"correct_count"`
	AttemptCount        int64      `json:"attempt_count" db:"attempt_count"`
	SubmissionCount     int64      `json:"submission_count" db:"submission_count"`
	CurrentStreak       int64      `json:"current_streak" db:"current_streak"`
	MaxStreak           int64      `json:"max_streak" db:"max_streak"`
	ValidationCount     int64      `json:"validation_count" db:"validation_count"`
	GovernanceVoteCount int64      `json:"governance_vote_count" db:"governance_vote_count"`
	SuspicionScore      int32      `json:"suspicion_score" db:"suspicion_score"`
	Tier                int32      `json:"tier" db:"tier"`
	LastActivityAt      *time.Time `json:"last_activity_at" db:"last_activity_at"`
	LastDecayAt         *time.Time `json:"last_decay_at" db:"last_decay_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Accuracy returns the lifetime share of correct answers in [0,1].
// Accounts with no attempts yet report 1.0 so they are never gated on
// a history they do not have.
func (a *Account) Accuracy() float64 {
	if a.AttemptCount == 0 {
		return 1.0
	}
	return float64(a.CorrectCount) / float64(a.AttemptCount)
}

// TierName maps a tier constant to its display name.
func TierName(tier int32) string {
	switch tier {
	case TierSolver:
		return "solver"
	case TierExpert:
		return "expert"
	case TierOracle:
		return "oracle"
	default:
		return "newcomer"
	}
}

// DeviceFingerprint links a device hash to an account for collision checks.
type DeviceFingerprint struct {
	Fingerprint string    `json:"fingerprint" db:"fingerprint"`
	Address     string    `json:"address" db:"address"`
	FirstSeenAt time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at" db:"last_seen_at"`
}
