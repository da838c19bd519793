package economy

import "riddlen/riddle-service/internal/models"

// SessionParams are the randomized per-session parameters derived at
// creation time.
type SessionParams struct {
	MaxSlots     int32
	WinnerSlots  int32
	PrizePool    int64
	MinSolveSecs int64
	DurationSecs int64
}

type paramRange struct {
	slotsMin, slotsMax     int64
	winnersMin, winnersMax int64
	poolMin, poolMax       int64
	minSolveSecs           int64
	durationSecs           int64
}

// Harder difficulties get fewer slots and winner seats but larger pools.
var paramRanges = map[string]paramRange{
	models.DifficultyEasy:      {100, 500, 10, 50, 100_000, 500_000, 30, 3_600},
	models.DifficultyMedium:    {50, 200, 5, 20, 500_000, 2_000_000, 60, 7_200},
	models.DifficultyHard:      {20, 100, 3, 10, 2_000_000, 5_000_000, 120, 14_400},
	models.DifficultyLegendary: {5, 20, 1, 3, 5_000_000, 10_000_000, 300, 86_400},
}

// MixSeed folds a clock reading, an external entropy word and a monotonic
// nonce into one seed. The entropy source is the caller's trust boundary;
// only the mapping below is load-bearing.
func MixSeed(unixNano int64, entropy, nonce uint64) uint64 {
	return splitmix(uint64(unixNano) ^ entropy ^ (nonce * 0x9e3779b97f4a7c15))
}

// splitmix64 step; spreads consecutive seeds across the word.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// mapToRange maps a seed word into [lo, hi] inclusive by modulo.
func mapToRange(seed uint64, lo, hi int64) int64 {
	span := uint64(hi - lo + 1)
	return lo + int64(seed%span)
}

// DeriveSessionParams maps a seed into the difficulty's clamped parameter
// ranges. Successive values draw from successive splitmix steps so the
// three parameters do not correlate. Deterministic for the same seed.
func DeriveSessionParams(difficulty string, seed uint64) SessionParams {
	r, ok := paramRanges[difficulty]
	if !ok {
		r = paramRanges[models.DifficultyEasy]
	}
	s1 := splitmix(seed)
	s2 := splitmix(s1)
	s3 := splitmix(s2)
	return SessionParams{
		MaxSlots:     int32(mapToRange(s1, r.slotsMin, r.slotsMax)),
		WinnerSlots:  int32(mapToRange(s2, r.winnersMin, r.winnersMax)),
		PrizePool:    mapToRange(s3, r.poolMin, r.poolMax),
		MinSolveSecs: r.minSolveSecs,
		DurationSecs: r.durationSecs,
	}
}

// SpeedThresholdSecs is the cutoff for the speed-solver bonus: finishing
// within the first quarter of the session window qualifies.
func SpeedThresholdSecs(durationSecs int64) int64 {
	return durationSecs / 4
}

// TierFloor returns the minimum tier admitted to a session of the given
// difficulty.
func TierFloor(difficulty string) int32 {
	switch difficulty {
	case models.DifficultyMedium:
		return models.TierSolver
	case models.DifficultyHard:
		return models.TierExpert
	case models.DifficultyLegendary:
		return models.TierOracle
	default:
		return models.TierNewcomer
	}
}
