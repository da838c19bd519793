package economy

import "riddlen/riddle-service/internal/models"

// Reputation thresholds for the four tiers.
const (
	SolverThreshold = 1_000
	ExpertThreshold = 10_000
	OracleThreshold = 100_000
)

// TierFor maps a reputation balance to its tier by the fixed thresholds.
func TierFor(reputation int64) int32 {
	switch {
	case reputation >= OracleThreshold:
		return models.TierOracle
	case reputation >= ExpertThreshold:
		return models.TierExpert
	case reputation >= SolverThreshold:
		return models.TierSolver
	default:
		return models.TierNewcomer
	}
}

// GatedTier applies the quality gate on top of TierFor: advancement above
// Newcomer is withheld while lifetime accuracy sits below the configured
// minimum. Accounts without attempts pass the gate; they have no history to
// be judged on.
func GatedTier(reputation, correct, attempts int64, minAccuracyPct int64) int32 {
	tier := TierFor(reputation)
	if tier == models.TierNewcomer || attempts == 0 {
		return tier
	}
	if correct*100 < attempts*minAccuracyPct {
		return models.TierNewcomer
	}
	return tier
}
