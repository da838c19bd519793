package models

import "time"

// Question validation states.
const (
	QuestionStatusPending   = 0
	QuestionStatusValidated = 1
	QuestionStatusRejected  = 2
)

// Vote verdicts shared by question validation and governance.
const (
	VoteApprove = 1
	VoteReject  = 2
)

// Question represents a community-submitted riddle. The unit is content
// agnostic: only the keccak-256 commitment of the answer and an external
// content reference are stored, never the puzzle text or the answer.
type Question struct {
	ID         uint64    `json:"id" db:"id"`
	Creator    string    `json:"creator" db:"creator"`
	Difficulty string    `json:"difficulty" db:"difficulty"`
	ContentRef string    `json:"content_ref" db:"content_ref"`
	Commitment string    `json:"commitment" db:"commitment"` // hex keccak-256 of the answer
	Status     int32     `json:"status" db:"status"`
	Approvals  int32     `json:"approvals" db:"approvals"`
	Rejections int32     `json:"rejections" db:"rejections"`
	UsageCount int32     `json:"usage_count" db:"usage_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// IsValidated reports whether the question passed validator consensus and
// may be scheduled into sessions.
func (q *Question) IsValidated() bool {
	return q.Status == QuestionStatusValidated
}

// QuestionVote represents one validator's verdict on a pending question.
type QuestionVote struct {
	ID         uint64    `json:"id" db:"id"`
	QuestionID uint64    `json:"question_id" db:"question_id"`
	Validator  string    `json:"validator" db:"validator"`
	Verdict    int32     `json:"verdict" db:"verdict"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
