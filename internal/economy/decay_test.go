package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecayedBalance(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	window := 90 * 24 * time.Hour
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		testName string
		balance  int64
		last     *time.Time
		expected int64
		windows  int64
	}{
		{testName: "active account untouched", balance: 1000, last: at(30 * 24 * time.Hour), expected: 1000, windows: 0},
		{testName: "one window takes ten percent", balance: 1000, last: at(window), expected: 900, windows: 1},
		{testName: "two windows compound", balance: 1000, last: at(2 * window), expected: 810, windows: 2},
		{testName: "small balance reaches the zero floor", balance: 5, last: at(20 * window), expected: 0, windows: 20},
		{testName: "no activity recorded", balance: 1000, last: nil, expected: 1000, windows: 0},
		{testName: "zero balance stays zero", balance: 0, last: at(5 * window), expected: 0, windows: 0},
	}
	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			got, windows := DecayedBalance(tt.balance, tt.last, now, window)
			require.Equal(t, tt.expected, got)
			require.Equal(t, tt.windows, windows)
		})
	}
}

func TestDecayedBalanceNeverNegative(t *testing.T) {
	now := time.Now()
	last := now.Add(-1000 * time.Hour)
	got, _ := DecayedBalance(3, &last, now, time.Hour)
	require.Equal(t, int64(0), got)
}
