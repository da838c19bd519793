package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMintCost(t *testing.T) {
	const (
		initial = int64(1000)
		minimum = int64(10)
	)
	period := 730 * 24 * time.Hour // biennial halving

	tests := []struct {
		testName string
		elapsed  time.Duration
		expected int64
	}{
		{testName: "at launch", elapsed: 0, expected: 1000},
		{testName: "one instant before the first halving", elapsed: period - time.Second, expected: 1000},
		{testName: "exactly one period", elapsed: period, expected: 500},
		{testName: "two periods", elapsed: 2 * period, expected: 250},
		{testName: "seven periods hits the floor", elapsed: 7 * period, expected: 10},
		{testName: "far beyond stays floored", elapsed: 100 * period, expected: 10},
		{testName: "clock skew before launch", elapsed: -time.Hour, expected: 1000},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			require.Equal(t, tt.expected, MintCost(initial, minimum, tt.elapsed, period))
		})
	}
}

func TestMintCostNeverBelowFloor(t *testing.T) {
	period := time.Hour
	for i := 0; i < 200; i++ {
		cost := MintCost(1_000_000, 7, time.Duration(i)*period, period)
		require.GreaterOrEqual(t, cost, int64(7), "halving %d", i)
	}
}
