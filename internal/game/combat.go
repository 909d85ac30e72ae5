/*
Package game
File: combat.go
Description:
    Resolves a pirate encounter as a flee/fight loop.
    The resolver is pure apart from the injected random source: it takes
    the ship's hull and guns and returns what happened, leaving all state
    changes to the Engine.
*/

package game

import "math"

// Outcome is how an encounter ended.
type Outcome int

const (
	OutcomeFled Outcome = iota
	OutcomeWon
	OutcomeShipLost
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeFled:
		return "fled"
	case OutcomeWon:
		return "won"
	case OutcomeShipLost:
		return "ship lost"
	default:
		return "unknown"
	}
}

// Round records one exchange of the fight.
type Round struct {
	FleeAttempted bool `json:"flee_attempted"`
	Escaped       bool `json:"escaped"`
	PlayerDamage  int  `json:"player_damage"`
	PirateDamage  int  `json:"pirate_damage"`
	PirateFired   bool `json:"pirate_fired"`
}

// Encounter is the result of ResolveEncounter.
type Encounter struct {
	Outcome     Outcome `json:"outcome"`
	PirateHP    int     `json:"pirate_hp"`   // Starting pirate hull
	PirateGuns  int     `json:"pirate_guns"` // Fixed for the whole encounter
	FinalShipHP int     `json:"final_ship_hp"`
	Loot        int     `json:"loot"`
	BrokeOff    bool    `json:"broke_off"` // Pirates gave up after MaxRounds
	Rounds      []Round `json:"rounds"`
}

// ResolveEncounter fights one pirate ship until it sinks, the player's ship
// sinks, or the player slips away.
//
// Zero-damage exchanges are normal and may repeat; the fight only stops
// being open-ended at c.MaxRounds, when the pirates break off.
func ResolveEncounter(c CombatConfig, shipHP, guns int, r Rand) Encounter {
	enc := Encounter{
		PirateHP:   rnd(r, c.PirateMinHP, c.PirateMaxHP),
		PirateGuns: rnd(r, c.PirateMinGuns, c.PirateMaxGuns),
	}
	pirateHP := enc.PirateHP

	fleeBias := c.FleeAttempt
	if float64(enc.PirateGuns) > float64(guns)*c.OutgunnedRatio {
		fleeBias = c.OutgunnedFlee
	}

	for pirateHP > 0 && shipHP > 0 {
		if len(enc.Rounds) >= c.MaxRounds {
			enc.Outcome = OutcomeFled
			enc.BrokeOff = true
			enc.FinalShipHP = shipHP
			return enc
		}
		var rd Round

		// 1. Outgunned captains try to run more often
		if chance(r, fleeBias) {
			rd.FleeAttempted = true
			if chance(r, c.FleeSuccess) {
				rd.Escaped = true
				enc.Rounds = append(enc.Rounds, rd)
				enc.Outcome = OutcomeFled
				enc.FinalShipHP = shipHP
				return enc
			}
		}

		// 2. Fire!
		rd.PlayerDamage = hit(guns, uniform(r, c.PlayerDamageMin, c.PlayerDamageMax), rnd(r, 0, c.MaxDeflect))
		pirateHP -= rd.PlayerDamage
		if pirateHP <= 0 {
			enc.Rounds = append(enc.Rounds, rd)
			break
		}

		// 3. Pirates fire back
		rd.PirateFired = true
		rd.PirateDamage = hit(enc.PirateGuns, uniform(r, c.PirateDamageMin, c.PirateDamageMax), rnd(r, 0, c.MaxDeflect))
		shipHP -= rd.PirateDamage
		enc.Rounds = append(enc.Rounds, rd)
	}

	enc.FinalShipHP = shipHP
	if shipHP <= 0 {
		enc.Outcome = OutcomeShipLost
		return enc
	}
	enc.Outcome = OutcomeWon
	enc.Loot = rnd(r, c.LootMin, c.LootMax)
	return enc
}

// hit is max(0, round(guns*factor - deflect)).
func hit(guns int, factor float64, deflect int) int {
	return max(0, int(math.Round(float64(guns)*factor-float64(deflect))))
}
