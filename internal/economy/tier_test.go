package economy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"riddlen/riddle-service/internal/models"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		testName   string
		reputation int64
		expected   int32
	}{
		{testName: "zero", reputation: 0, expected: models.TierNewcomer},
		{testName: "just below solver", reputation: 999, expected: models.TierNewcomer},
		{testName: "solver threshold", reputation: 1_000, expected: models.TierSolver},
		{testName: "fifty-nine awards of seventeen cross into solver", reputation: 59 * 17, expected: models.TierSolver},
		{testName: "just below expert", reputation: 9_999, expected: models.TierSolver},
		{testName: "expert threshold", reputation: 10_000, expected: models.TierExpert},
		{testName: "oracle threshold", reputation: 100_000, expected: models.TierOracle},
		{testName: "far beyond oracle", reputation: 5_000_000, expected: models.TierOracle},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			require.Equal(t, tt.expected, TierFor(tt.reputation))
		})
	}
}

func TestTierForIsMonotonic(t *testing.T) {
	prev := TierFor(0)
	for rep := int64(1); rep <= 200_000; rep += 37 {
		cur := TierFor(rep)
		require.GreaterOrEqual(t, cur, prev, "reputation %d", rep)
		prev = cur
	}
}

func TestGatedTier(t *testing.T) {
	const minAccuracy = 60

	tests := []struct {
		testName   string
		reputation int64
		correct    int64
		attempts   int64
		expected   int32
	}{
		{testName: "accurate expert keeps tier", reputation: 10_000, correct: 90, attempts: 100, expected: models.TierExpert},
		{testName: "sloppy expert drops to newcomer", reputation: 10_000, correct: 50, attempts: 100, expected: models.TierNewcomer},
		{testName: "exactly at the gate holds", reputation: 1_000, correct: 60, attempts: 100, expected: models.TierSolver},
		{testName: "one short of the gate drops", reputation: 1_000, correct: 59, attempts: 100, expected: models.TierNewcomer},
		{testName: "no attempts passes vacuously", reputation: 100_000, correct: 0, attempts: 0, expected: models.TierOracle},
		{testName: "newcomer unaffected by gate", reputation: 500, correct: 0, attempts: 50, expected: models.TierNewcomer},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			require.Equal(t, tt.expected, GatedTier(tt.reputation, tt.correct, tt.attempts, minAccuracy))
		})
	}
}
