package models

import "time"

// Token pool names. Each pool carries a hard allocation cap that minting
// can never exceed.
const (
	PoolReward    = "reward"
	PoolTreasury  = "treasury"
	PoolAirdrop   = "airdrop"
	PoolLiquidity = "liquidity"
)

// Burn reasons recorded on distributions.
const (
	BurnReasonSessionMint        = "session_mint"
	BurnReasonAttemptPenalty     = "attempt_penalty"
	BurnReasonQuestionSubmission = "question_submission"
	BurnReasonResaleFee          = "resale_fee"
	BurnReasonDirectSpend        = "direct_spend"
)

// TokenPool represents one fixed allocation of the credit supply.
// Minted only grows; Returned tracks burn-protocol shares flowing back in.
type TokenPool struct {
	Name      string    `json:"name" db:"name"`
	Cap       int64     `json:"cap" db:"cap"`
	Minted    int64     `json:"minted" db:"minted"`
	Returned  int64     `json:"returned" db:"returned"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Remaining returns how much the pool can still mint.
func (p *TokenPool) Remaining() int64 {
	return p.Cap - p.Minted
}

// BurnDistribution records one burn-protocol split: half of the amount is
// destroyed, a quarter funds the reward pool and the remainder goes to the
// treasury.
type BurnDistribution struct {
	ID            string    `json:"id" db:"id"` // VARCHAR PK like DST-1700000000-A1B2
	Address       string    `json:"address" db:"address"`
	Amount        int64     `json:"amount" db:"amount"`
	Burned        int64     `json:"burned" db:"burned"`
	RewardShare   int64     `json:"reward_share" db:"reward_share"`
	TreasuryShare int64     `json:"treasury_share" db:"treasury_share"`
	Reason        string    `json:"reason" db:"reason"`
	Reference     string    `json:"reference" db:"reference"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
