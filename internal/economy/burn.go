package economy

// Distribution is the exact three-way split of one spend: half destroyed,
// a quarter to the reward pool, the rest to the treasury.
type Distribution struct {
	Burned        int64
	RewardShare   int64
	TreasuryShare int64
}

// Total returns the reconciled input amount.
func (d Distribution) Total() int64 {
	return d.Burned + d.RewardShare + d.TreasuryShare
}

// SplitSpend splits amount into burn/reward/treasury shares using integer
// arithmetic. The burn share is computed first, then the reward share, and
// the treasury takes the remainder, so the three shares reconcile exactly
// to the input for every amount >= 1.
func SplitSpend(amount int64) Distribution {
	burned := amount / 2
	reward := amount / 4
	return Distribution{
		Burned:        burned,
		RewardShare:   reward,
		TreasuryShare: amount - burned - reward,
	}
}

// ProgressiveCost returns the cost of the next action given how many the
// account performed before: the Nth action costs N units, 1-indexed. The
// caller increments the counter in the same transaction that charges the
// cost.
func ProgressiveCost(previousCount int64) int64 {
	return previousCount + 1
}
