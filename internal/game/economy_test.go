package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleGoodUniverse has one good so scripted draws map 1:1 onto the algorithm.
func singleGoodUniverse(t *testing.T) *Universe {
	t.Helper()
	u := mustUniverse(t)
	u.Goods = []Good{{Key: "tea", Name: "Tea", BasePrice: 100, Volume: 1}}
	return u
}

func TestRecomputePrices_PortMultiplier(t *testing.T) {
	u := mustUniverse(t)

	cases := map[string]int{
		"hong_kong": 1000,
		"shanghai":  950,
		"nagasaki":  1070,
		"batavia":   1000,
	}
	for port, want := range cases {
		s := NewState(u)
		var log eventLog
		recomputePrices(u, s, port, script(nil), &log)
		assert.Equal(t, want, s.PriceMap["opium"], port)
	}
}

func TestRecomputePrices_NoiseBounds(t *testing.T) {
	u := mustUniverse(t)
	u.Market.EventChance = 0

	for _, f := range []float64{0, 0.999999} {
		s := NewState(u)
		var log eventLog
		draws := make([]float64, 0, 2*len(u.Goods))
		for range u.Goods {
			draws = append(draws, f, 0.99)
		}
		recomputePrices(u, s, "hong_kong", script(draws), &log)

		for _, g := range u.Goods {
			v := u.volatility(&g)
			lo := math.Round(float64(g.BasePrice) * (1 - v))
			hi := math.Round(float64(g.BasePrice) * (1 + v))
			p := float64(s.PriceMap[g.Key])
			assert.GreaterOrEqual(t, p, lo, g.Key)
			assert.LessOrEqual(t, p, hi, g.Key)
		}
	}
}

func TestRecomputePrices_AlwaysPositive(t *testing.T) {
	u := mustUniverse(t)
	u.Goods = append(u.Goods, Good{Key: "sand", Name: "Sand", BasePrice: 1, Volume: 1, Volatility: 0.9})

	for seed := uint64(0); seed < 50; seed++ {
		r := NewRand(seed)
		s := NewState(u)
		var log eventLog
		for i := 0; i < 20; i++ {
			recomputePrices(u, s, u.Ports[i%len(u.Ports)].Key, r, &log)
			for key, p := range s.PriceMap {
				require.GreaterOrEqual(t, p, 1, "seed %d good %s", seed, key)
			}
		}
	}
}

// An event that starts with d turns still applies on the recomputation where
// its counter reaches zero, and only lapses on the one after: d+1 in total.
func TestRecomputePrices_ScarcityLifecycle(t *testing.T) {
	u := singleGoodUniverse(t)
	s := NewState(u)
	var log eventLog

	// noise 0, event roll hits, coin picks scarcity, duration 1
	recomputePrices(u, s, "hong_kong", script([]float64{0.5, 0.0, 0.0}, 0), &log)
	assert.Equal(t, Scarcity{Kind: Scarce, Turns: 1}, s.Scarcity["tea"])
	assert.Equal(t, 160, s.PriceMap["tea"])
	events := log.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "Tea is scarce in Hong Kong!", events[0].Message)
	assert.Equal(t, SeverityWarn, events[0].Severity)

	recomputePrices(u, s, "hong_kong", script([]float64{0.5}), &log)
	assert.Equal(t, Scarcity{Kind: Scarce, Turns: 0}, s.Scarcity["tea"])
	assert.Equal(t, 160, s.PriceMap["tea"], "modifier still applies at zero turns")

	recomputePrices(u, s, "hong_kong", script([]float64{0.5, 0.99}), &log)
	assert.Equal(t, ScarcityNone, s.Scarcity["tea"].Kind)
	assert.Equal(t, 100, s.PriceMap["tea"])
	assert.Empty(t, log.drain())
}

func TestRecomputePrices_Glut(t *testing.T) {
	u := singleGoodUniverse(t)
	s := NewState(u)
	var log eventLog

	// coin 0.9 -> glut, duration 3
	recomputePrices(u, s, "shanghai", script([]float64{0.5, 0.0, 0.9}, 2), &log)
	assert.Equal(t, Scarcity{Kind: Glut, Turns: 3}, s.Scarcity["tea"])
	assert.Equal(t, 57, s.PriceMap["tea"]) // round(round(100*0.95) * 0.6)

	events := log.drain()
	require.Len(t, events, 1)
	assert.Equal(t, "Tea glut in supply in Shanghai!", events[0].Message)
	assert.Equal(t, SeverityOK, events[0].Severity)
}

func TestRecomputePrices_NoNewEventWhileActive(t *testing.T) {
	u := singleGoodUniverse(t)
	s := NewState(u)
	s.Scarcity["tea"] = Scarcity{Kind: Glut, Turns: 2}
	var log eventLog

	// A hit on the event roll must not be consumed while the glut runs.
	r := script([]float64{0.5, 0.0, 0.0})
	recomputePrices(u, s, "hong_kong", r, &log)
	assert.Equal(t, Scarcity{Kind: Glut, Turns: 1}, s.Scarcity["tea"])
	assert.Len(t, r.floats, 2)
}
