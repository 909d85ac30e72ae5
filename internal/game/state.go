/*
Package game
File: state.go
Description:
    Loads the universe (ports, goods and balance) from YAML and builds
    fresh game states from it.

    A default universe is embedded in the binary so the engine works
    without any file on disk; hosts may load an override file instead.
*/

package game

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed universe.yaml
var defaultUniverse []byte

// DefaultUniverse parses the embedded 'universe.yaml'.
func DefaultUniverse() (*Universe, error) {
	return ParseUniverse(defaultUniverse)
}

// LoadUniverse reads a universe file from disk.
func LoadUniverse(path string) (*Universe, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u, err := ParseUniverse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// ParseUniverse unmarshals and validates a universe document.
func ParseUniverse(raw []byte) (*Universe, error) {
	var u Universe
	if err := yaml.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	if err := u.validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *Universe) validate() error {
	if len(u.Ports) < 2 {
		return fmt.Errorf("universe needs at least 2 ports, got %d", len(u.Ports))
	}
	seen := make(map[string]bool)
	for _, p := range u.Ports {
		if p.Key == "" {
			return fmt.Errorf("port %q has no key", p.Name)
		}
		if seen[p.Key] {
			return fmt.Errorf("duplicate port key %q", p.Key)
		}
		seen[p.Key] = true
		if len(p.Coordinates) != 2 {
			return fmt.Errorf("port %q: coordinates must be [lat, lon]", p.Key)
		}
		if p.FeeMultiplier < 0 || p.PriceMultiplier < 0 {
			return fmt.Errorf("port %q: negative multiplier", p.Key)
		}
	}
	if !seen[u.Balance.StartingPort] {
		return fmt.Errorf("starting port %q is not a port", u.Balance.StartingPort)
	}
	if !seen[u.Balance.BankPort] {
		return fmt.Errorf("bank port %q is not a port", u.Balance.BankPort)
	}

	if len(u.Goods) == 0 {
		return fmt.Errorf("universe has no goods")
	}
	seenGoods := make(map[string]bool)
	for _, g := range u.Goods {
		if g.Key == "" || seenGoods[g.Key] {
			return fmt.Errorf("missing or duplicate good key %q", g.Key)
		}
		seenGoods[g.Key] = true
		if g.BasePrice < 1 || g.Volume < 1 {
			return fmt.Errorf("good %q: base price and volume must be at least 1", g.Key)
		}
		if g.Volatility < 0 || g.Volatility >= 1 {
			return fmt.Errorf("good %q: volatility must be in [0, 1)", g.Key)
		}
	}

	b := u.Balance
	if b.HoldCapacity < 1 || b.ShipMaxHP < 1 || b.StartingGuns < 1 {
		return fmt.Errorf("hold capacity, ship hp and guns must be positive")
	}
	if b.StartingCash < 0 {
		return fmt.Errorf("starting cash must not be negative")
	}
	for name, p := range map[string]float64{
		"pirate_chance":           b.PirateChance,
		"protected_pirate_factor": b.ProtectedPirateFactor,
		"event_chance":            u.Market.EventChance,
		"flee_attempt":            u.Combat.FleeAttempt,
		"outgunned_flee":          u.Combat.OutgunnedFlee,
		"flee_success":            u.Combat.FleeSuccess,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be a probability, got %v", name, p)
		}
	}
	if u.Market.EventMinTurns < 1 || u.Market.EventMaxTurns < u.Market.EventMinTurns {
		return fmt.Errorf("event turns must satisfy 1 <= min <= max")
	}
	c := u.Combat
	if c.PirateMinHP < 1 || c.PirateMaxHP < c.PirateMinHP ||
		c.PirateMinGuns < 1 || c.PirateMaxGuns < c.PirateMinGuns ||
		c.LootMin < 0 || c.LootMax < c.LootMin || c.MaxRounds < 1 {
		return fmt.Errorf("combat ranges are inconsistent")
	}
	return nil
}

// NewState returns the state of a game that has not started trading yet.
// Prices are left empty; the Engine fills them for the starting port.
func NewState(u *Universe) *GameState {
	s := &GameState{
		Turn:         1,
		Port:         u.Balance.StartingPort,
		Cash:         u.Balance.StartingCash,
		ShipHP:       u.Balance.ShipMaxHP,
		ShipMaxHP:    u.Balance.ShipMaxHP,
		Guns:         u.Balance.StartingGuns,
		HoldCapacity: u.Balance.HoldCapacity,
		Cargo:        make(map[string]int, len(u.Goods)),
		PriceMap:     make(map[string]int, len(u.Goods)),
		Scarcity:     make(map[string]Scarcity, len(u.Goods)),
	}
	for _, g := range u.Goods {
		s.Cargo[g.Key] = 0
	}
	return s
}

// Clone returns a deep copy of the state.
func (s *GameState) Clone() GameState {
	c := *s
	c.Cargo = make(map[string]int, len(s.Cargo))
	for k, v := range s.Cargo {
		c.Cargo[k] = v
	}
	c.PriceMap = make(map[string]int, len(s.PriceMap))
	for k, v := range s.PriceMap {
		c.PriceMap[k] = v
	}
	c.Scarcity = make(map[string]Scarcity, len(s.Scarcity))
	for k, v := range s.Scarcity {
		c.Scarcity[k] = v
	}
	return c
}
