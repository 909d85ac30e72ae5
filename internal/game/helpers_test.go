package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws. Once a queue runs dry, Float64 returns 0.5
// (no noise, no event, no encounter, no flee) and IntN returns 0.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func script(floats []float64, ints ...int) *scriptedRand {
	return &scriptedRand{floats: floats, ints: ints}
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func mustUniverse(t *testing.T) *Universe {
	t.Helper()
	u, err := DefaultUniverse()
	require.NoError(t, err)
	return u
}

// newTestEngine starts a game whose prices are exactly base * port multiplier.
func newTestEngine(t *testing.T) (*Engine, *scriptedRand) {
	t.Helper()
	r := script(nil)
	e := NewEngine(mustUniverse(t), r, nil)
	e.Drain()
	return e, r
}
