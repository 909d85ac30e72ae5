package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUniverse(t *testing.T) {
	u := mustUniverse(t)

	assert.Len(t, u.Ports, 7)
	assert.Len(t, u.Goods, 9)
	assert.Equal(t, "hong_kong", u.Balance.StartingPort)
	assert.Equal(t, "hong_kong", u.Balance.BankPort)
	assert.Equal(t, 2000, u.Balance.StartingCash)
	assert.Equal(t, 1000000, u.Balance.RetireTarget)

	// Only a few goods override the default volatility.
	assert.Equal(t, 0.45, u.volatility(u.GetGood("opium")))
	assert.Equal(t, 0.35, u.volatility(u.GetGood("silk")))
	assert.Equal(t, 0.30, u.volatility(u.GetGood("arms")))
	assert.Equal(t, 0.20, u.volatility(u.GetGood("general")))
	for _, key := range []string{"rice", "tea", "spices", "porcelain", "glassware"} {
		assert.Zero(t, u.GetGood(key).Volatility, key)
		assert.Equal(t, 0.25, u.volatility(u.GetGood(key)), key)
	}

	assert.Zero(t, u.GetPort("batavia").PriceMultiplier, "batavia is unlisted and falls back to 1.0")
}

func TestParseUniverse_Rejects(t *testing.T) {
	base := string(defaultUniverse)

	cases := map[string]string{
		"unknown bank port":  strings.Replace(base, "bank_port: hong_kong", "bank_port: macau", 1),
		"bad probability":    strings.Replace(base, "pirate_chance: 0.28", "pirate_chance: 1.5", 1),
		"duplicate port key": strings.Replace(base, "key: nagasaki", "key: hong_kong", 1),
		"zero base price":    strings.Replace(base, "base_price: 20,", "base_price: 0,", 1),
		"not yaml":           "ports: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseUniverse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestNewState(t *testing.T) {
	u := mustUniverse(t)
	s := NewState(u)

	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, "hong_kong", s.Port)
	assert.Equal(t, 2000, s.Cash)
	assert.Equal(t, 100, s.ShipHP)
	assert.Equal(t, 100, s.ShipMaxHP)
	assert.Equal(t, 5, s.Guns)
	assert.Equal(t, 100, s.HoldCapacity)
	assert.False(t, s.Protection)
	require.Len(t, s.Cargo, 9)
	for _, qty := range s.Cargo {
		assert.Zero(t, qty)
	}
}

func TestClone_IsDeep(t *testing.T) {
	s := NewState(mustUniverse(t))
	s.PriceMap["tea"] = 55

	c := s.Clone()
	c.Cargo["tea"] = 7
	c.PriceMap["tea"] = 1

	assert.Zero(t, s.Cargo["tea"])
	assert.Equal(t, 55, s.PriceMap["tea"])
}
