package economy

import "time"

// DecayedBalance reduces a reputation balance by 10% per decay window fully
// elapsed since the last activity, floored at zero. Returns the new balance
// and how many windows were applied. A nil lastActivity or non-positive
// window decays nothing; callers trigger this explicitly, nothing runs on a
// timer.
func DecayedBalance(balance int64, lastActivity *time.Time, now time.Time, window time.Duration) (int64, int64) {
	if balance <= 0 || lastActivity == nil || window <= 0 {
		return balance, 0
	}
	elapsed := now.Sub(*lastActivity)
	if elapsed < window {
		return balance, 0
	}
	windows := int64(elapsed / window)
	for i := int64(0); i < windows && balance > 0; i++ {
		balance = balance * 9 / 10
	}
	return balance, windows
}
