// Package rng is the deterministic random stream used for every gameplay
// decision. Rolls are pure: the caller receives the next seed and must
// thread it forward explicitly, so replaying a seed sequence reproduces
// identical outcomes across processes.
package rng

const (
	multiplier = 6364136223846793005
	increment  = 1442695040888963407
)

// Roll advances the linear congruential state once and returns a value in
// [0, 1) together with the next seed.
func Roll(seed int64) (float64, int64) {
	next := seed*multiplier + increment
	// Top 53 bits map cleanly onto the float64 mantissa.
	value := float64(uint64(next)>>11) / (1 << 53)
	return value, next
}

// Intn returns a roll in [0, n). n must be positive.
func Intn(seed int64, n int) (int, int64) {
	if n <= 0 {
		panic("rng: Intn with non-positive n")
	}
	value, next := Roll(seed)
	return int(value * float64(n)), next
}

// Chance reports whether a roll lands under p (a probability in [0, 1]).
func Chance(seed int64, p float64) (bool, int64) {
	value, next := Roll(seed)
	return value < p, next
}

// Pick returns a roll-selected index into a slice of the given length,
// skipping the excluded index when it is in range. Used for
// wrong-assignment substitution where the optimal candidate must not be
// re-picked. length must be at least 2 when exclude is in range.
func Pick(seed int64, length, exclude int) (int, int64) {
	if exclude < 0 || exclude >= length {
		return intnChecked(seed, length)
	}
	idx, next := intnChecked(seed, length-1)
	if idx >= exclude {
		idx++
	}
	return idx, next
}

func intnChecked(seed int64, n int) (int, int64) {
	if n <= 0 {
		panic("rng: pick from empty range")
	}
	return Intn(seed, n)
}
