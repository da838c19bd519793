package economy

import "time"

// MintCost returns the session mint cost at elapsed time since launch:
// initialCost / 2^floor(elapsed/halvingPeriod), floored at minCost.
// Negative elapsed (clock skew before launch) is treated as zero.
func MintCost(initialCost, minCost int64, elapsed, halvingPeriod time.Duration) int64 {
	if elapsed < 0 {
		elapsed = 0
	}
	halvings := int64(elapsed / halvingPeriod)
	if halvings >= 63 {
		return minCost
	}
	cost := initialCost >> uint(halvings)
	if cost < minCost {
		return minCost
	}
	return cost
}
