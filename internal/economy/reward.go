package economy

import (
	"github.com/shopspring/decimal"

	"riddlen/riddle-service/internal/models"
)

// Per-difficulty base reputation ranges, inclusive.
var rewardRanges = map[string][2]int64{
	models.DifficultyEasy:      {10, 25},
	models.DifficultyMedium:    {50, 100},
	models.DifficultyHard:      {200, 500},
	models.DifficultyLegendary: {1000, 10000},
}

var (
	firstSolverMultiplier = decimal.NewFromInt(5)
	speedSolverMultiplier = decimal.RequireFromString("1.5")
	streakStep            = decimal.RequireFromString("0.1")
)

// BaseReward maps a random roll into the difficulty's inclusive reward
// range. Unknown difficulties fall back to the easy range.
func BaseReward(difficulty string, roll uint64) int64 {
	r, ok := rewardRanges[difficulty]
	if !ok {
		r = rewardRanges[models.DifficultyEasy]
	}
	span := uint64(r[1] - r[0] + 1)
	return r[0] + int64(roll%span)
}

// Reward computes the reputation awarded for a correct answer. The first
// solver multiplier (5x) and the speed multiplier (1.5x) never stack; first
// takes precedence. The streak bonus adds 10% per consecutive correct
// answer, capped at +100%. The decimal product truncates to integer units.
func Reward(difficulty string, roll uint64, isFirst, isSpeed bool, streak int64) int64 {
	base := decimal.NewFromInt(BaseReward(difficulty, roll))
	switch {
	case isFirst:
		base = base.Mul(firstSolverMultiplier)
	case isSpeed:
		base = base.Mul(speedSolverMultiplier)
	}
	if streak > 10 {
		streak = 10
	}
	if streak > 0 {
		bonus := decimal.NewFromInt(1).Add(streakStep.Mul(decimal.NewFromInt(streak)))
		base = base.Mul(bonus)
	}
	return base.IntPart()
}

// PrizeShare returns one winner's cut of the session prize pool. Every
// winner takes pool/winnerSlots; the first successful solver takes an extra
// half share on top.
func PrizeShare(prizePool int64, winnerSlots int32, isFirst bool) int64 {
	if winnerSlots <= 0 {
		return 0
	}
	share := prizePool / int64(winnerSlots)
	if isFirst {
		share += share / 2
	}
	return share
}
