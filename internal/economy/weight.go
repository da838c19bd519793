package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	accuracyTop    = decimal.RequireFromString("1.30")
	accuracyHigh   = decimal.RequireFromString("1.15")
	accuracyBase   = decimal.RequireFromString("1.00")
	accuracyLow    = decimal.RequireFromString("0.85")
	accuracyFloor  = decimal.RequireFromString("0.70")
	recencySameDay = decimal.RequireFromString("1.00")
	recencyWeek    = decimal.RequireFromString("0.90")
	recencyMonth   = decimal.RequireFromString("0.75")
	recencyFloor   = decimal.RequireFromString("0.50")
	contribStep    = decimal.RequireFromString("0.05")
	contribCap     = decimal.RequireFromString("2.00")
)

// AccuracyMultiplier buckets lifetime accuracy: >=90% 1.30x, >=80% 1.15x,
// >=70% 1.00x, >=60% 0.85x, below 0.70x. Accounts without attempts take
// the top bucket; they have no history to discount.
func AccuracyMultiplier(correct, attempts int64) decimal.Decimal {
	if attempts == 0 {
		return accuracyTop
	}
	switch {
	case correct*10 >= attempts*9:
		return accuracyTop
	case correct*10 >= attempts*8:
		return accuracyHigh
	case correct*10 >= attempts*7:
		return accuracyBase
	case correct*10 >= attempts*6:
		return accuracyLow
	default:
		return accuracyFloor
	}
}

// RecencyFactor discounts stale accounts: activity within 24h 1.00x, within
// 7 days 0.90x, within 30 days 0.75x, otherwise the 0.50x floor. Accounts
// that never acted sit on the floor.
func RecencyFactor(lastActivity *time.Time, now time.Time) decimal.Decimal {
	if lastActivity == nil {
		return recencyFloor
	}
	elapsed := now.Sub(*lastActivity)
	switch {
	case elapsed <= 24*time.Hour:
		return recencySameDay
	case elapsed <= 7*24*time.Hour:
		return recencyWeek
	case elapsed <= 30*24*time.Hour:
		return recencyMonth
	default:
		return recencyFloor
	}
}

// ContributionBonus starts at 1.00x and adds 0.05x per validation performed
// and per governance vote cast, capped at 2.00x.
func ContributionBonus(validations, votes int64) decimal.Decimal {
	bonus := decimal.NewFromInt(1).Add(contribStep.Mul(decimal.NewFromInt(validations + votes)))
	if bonus.GreaterThan(contribCap) {
		return contribCap
	}
	return bonus
}

// GovernanceWeight is the composite voting weight: reputation x accuracy
// multiplier x recency factor x contribution bonus, truncated to integer
// units. Deterministic for the same stats.
func GovernanceWeight(reputation, correct, attempts int64, lastActivity *time.Time, now time.Time, validations, votes int64) int64 {
	if reputation <= 0 {
		return 0
	}
	w := decimal.NewFromInt(reputation).
		Mul(AccuracyMultiplier(correct, attempts)).
		Mul(RecencyFactor(lastActivity, now)).
		Mul(ContributionBonus(validations, votes))
	return w.IntPart()
}
