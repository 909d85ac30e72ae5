package game

import "math/rand/v2"

// Rand is the source of every random decision in the engine.
// *rand.Rand from math/rand/v2 satisfies it; tests plug in scripted sources.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NewRand returns a seeded PCG source.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed>>16|3))
}

// rnd draws an integer uniformly from [lo, hi].
func rnd(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return r.IntN(hi-lo+1) + lo
}

// chance reports true with probability p.
func chance(r Rand, p float64) bool {
	return r.Float64() < p
}

// uniform draws a float uniformly from [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
