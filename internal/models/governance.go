package models

import "time"

// GovernanceProposal represents a protocol proposal voted on with
// reputation-derived weight. One reputation point is one base vote; the
// effective weight also carries accuracy, recency and contribution factors.
type GovernanceProposal struct {
	ID           string     `json:"id" db:"id"` // VARCHAR PK like GOV-20260101-A1B2C3
	Proposer     string     `json:"proposer" db:"proposer"`
	Description  string     `json:"description" db:"description"`
	VotingEndsAt time.Time  `json:"voting_ends_at" db:"voting_ends_at"`
	YesWeight    int64      `json:"yes_weight" db:"yes_weight"`
	NoWeight     int64      `json:"no_weight" db:"no_weight"`
	Executed     bool       `json:"executed" db:"executed"`
	Enacted      bool       `json:"enacted" db:"enacted"`
	Vetoed       bool       `json:"vetoed" db:"vetoed"`
	ExecutedAt   *time.Time `json:"executed_at" db:"executed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// VotingOpen reports whether the proposal still accepts votes at t.
func (p *GovernanceProposal) VotingOpen(t time.Time) bool {
	return !p.Executed && t.Before(p.VotingEndsAt)
}

// ProposalVote records one account's weighted governance vote. Immutable
// once cast.
type ProposalVote struct {
	ID         uint64    `json:"id" db:"id"`
	ProposalID string    `json:"proposal_id" db:"proposal_id"`
	Address    string    `json:"address" db:"address"`
	Support    bool      `json:"support" db:"support"`
	Weight     int64     `json:"weight" db:"weight"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
