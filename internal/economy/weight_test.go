package economy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAccuracyMultiplier(t *testing.T) {
	tests := []struct {
		testName string
		correct  int64
		attempts int64
		expected string
	}{
		{testName: "perfect record", correct: 100, attempts: 100, expected: "1.30"},
		{testName: "ninety percent", correct: 90, attempts: 100, expected: "1.30"},
		{testName: "eighty percent", correct: 80, attempts: 100, expected: "1.15"},
		{testName: "seventy percent", correct: 70, attempts: 100, expected: "1.00"},
		{testName: "sixty percent", correct: 60, attempts: 100, expected: "0.85"},
		{testName: "below sixty", correct: 59, attempts: 100, expected: "0.70"},
		{testName: "no attempts takes the top bucket", correct: 0, attempts: 0, expected: "1.30"},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			got := AccuracyMultiplier(tt.correct, tt.attempts)
			require.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestRecencyFactor(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		testName string
		last     *time.Time
		expected string
	}{
		{testName: "same day", last: at(2 * time.Hour), expected: "1.00"},
		{testName: "three days", last: at(3 * 24 * time.Hour), expected: "0.90"},
		{testName: "two weeks", last: at(14 * 24 * time.Hour), expected: "0.75"},
		{testName: "two months", last: at(60 * 24 * time.Hour), expected: "0.50"},
		{testName: "never active", last: nil, expected: "0.50"},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			got := RecencyFactor(tt.last, now)
			require.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
		})
	}
}

func TestContributionBonus(t *testing.T) {
	require.True(t, decimal.RequireFromString("1.00").Equal(ContributionBonus(0, 0)))
	require.True(t, decimal.RequireFromString("1.25").Equal(ContributionBonus(3, 2)))
	require.True(t, decimal.RequireFromString("2.00").Equal(ContributionBonus(15, 10)))
	require.True(t, decimal.RequireFromString("2.00").Equal(ContributionBonus(1000, 1000)))
}

func TestGovernanceWeight(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	// 1000 x 1.30 x 1.00 x 1.00
	require.Equal(t, int64(1300), GovernanceWeight(1000, 100, 100, &recent, now, 0, 0))

	// 1000 x 0.85 x 1.00 x 1.50 = 1275
	require.Equal(t, int64(1275), GovernanceWeight(1000, 60, 100, &recent, now, 5, 5))

	// truncation, never rounding: 999 x 1.15 = 1148.85
	require.Equal(t, int64(1148), GovernanceWeight(999, 80, 100, &recent, now, 0, 0))

	require.Equal(t, int64(0), GovernanceWeight(0, 100, 100, &recent, now, 0, 0))
}

func TestGovernanceWeightIsDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	last := now.Add(-26 * time.Hour)
	// 10,000 x 1.00 x 0.90 x 1.25
	for i := 0; i < 5; i++ {
		require.Equal(t, int64(11_250), GovernanceWeight(10_000, 75, 100, &last, now, 3, 2), "run %d", i)
	}
}
