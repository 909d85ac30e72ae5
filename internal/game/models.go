/*
Package game
File: models.go
Description:
    Defines all data structures used by the trading engine.
    This file serves as the "schema" for the application, mapping directly to
    the YAML universe file and to the JSON save snapshot.

    No logic is performed here; this file is strictly for type definitions.
*/

package game

// GameBalance stores global tuning variables loaded from 'universe.yaml'.
// These values control the finances, the ship and the voyage costs.
type GameBalance struct {
	StartingCash int     `yaml:"starting_cash" json:"starting_cash"`
	StartingPort string  `yaml:"starting_port" json:"starting_port"`
	BankPort     string  `yaml:"bank_port" json:"bank_port"` // Only port where deposits/withdrawals are allowed
	HoldCapacity int     `yaml:"hold_capacity" json:"hold_capacity"`
	ShipMaxHP    int     `yaml:"ship_max_hp" json:"ship_max_hp"`
	StartingGuns int     `yaml:"starting_guns" json:"starting_guns"`
	RetireTarget int     `yaml:"retire_target" json:"retire_target"`   // Liquid fortune (cash + bank) needed to retire
	BankruptAt   int     `yaml:"bankrupt_below" json:"bankrupt_below"` // Net worth floor that ends the game
	InterestRate float64 `yaml:"interest_rate" json:"interest_rate"`   // Debt interest per voyage, rounded up
	RepairPerHP  int     `yaml:"repair_cost_per_hp" json:"repair_cost_per_hp"`

	// Protection fee = Base + PerTurn * turn; the timer is reset on every payment.
	ProtectionBaseFee int `yaml:"protection_base_fee" json:"protection_base_fee"`
	ProtectionPerTurn int `yaml:"protection_fee_per_turn" json:"protection_fee_per_turn"`
	ProtectionVoyages int `yaml:"protection_voyages" json:"protection_voyages"`

	BaseSailingFee float64 `yaml:"base_sailing_fee" json:"base_sailing_fee"` // Multiplied by the destination fee multiplier
	FeePerKm       float64 `yaml:"fee_per_km" json:"fee_per_km"`
	KmPerWear      int     `yaml:"km_per_wear" json:"km_per_wear"`         // 1 HP lost per this many km
	MaxRandomWear  int     `yaml:"max_random_wear" json:"max_random_wear"` // Extra uniform wear 0..N

	PirateChance          float64 `yaml:"pirate_chance" json:"pirate_chance"`
	ProtectedPirateFactor float64 `yaml:"protected_pirate_factor" json:"protected_pirate_factor"`
}

// MarketConfig controls the price walk and the scarcity/glut events.
type MarketConfig struct {
	DefaultVolatility  float64 `yaml:"default_volatility" json:"default_volatility"` // Used by goods without an override
	EventChance        float64 `yaml:"event_chance" json:"event_chance"`
	EventMinTurns      int     `yaml:"event_min_turns" json:"event_min_turns"`
	EventMaxTurns      int     `yaml:"event_max_turns" json:"event_max_turns"`
	ScarcityMultiplier float64 `yaml:"scarcity_multiplier" json:"scarcity_multiplier"`
	GlutMultiplier     float64 `yaml:"glut_multiplier" json:"glut_multiplier"`
}

// CombatConfig holds the pirate encounter tuning.
type CombatConfig struct {
	PirateMinHP     int     `yaml:"pirate_min_hp"`
	PirateMaxHP     int     `yaml:"pirate_max_hp"`
	PirateMinGuns   int     `yaml:"pirate_min_guns"`
	PirateMaxGuns   int     `yaml:"pirate_max_guns"`
	OutgunnedRatio  float64 `yaml:"outgunned_ratio"`   // Pirate guns above guns*ratio means "outgunned"
	OutgunnedFlee   float64 `yaml:"outgunned_flee"`    // Chance to attempt escape when outgunned
	FleeAttempt     float64 `yaml:"flee_attempt"`      // Chance to attempt escape otherwise
	FleeSuccess     float64 `yaml:"flee_success"`      // Chance an attempt succeeds
	PlayerDamageMin float64 `yaml:"player_damage_min"` // guns * U(min, max)
	PlayerDamageMax float64 `yaml:"player_damage_max"`
	PirateDamageMin float64 `yaml:"pirate_damage_min"`
	PirateDamageMax float64 `yaml:"pirate_damage_max"`
	MaxDeflect      int     `yaml:"max_deflect"` // Each hit is reduced by U{0..N}
	LootMin         int     `yaml:"loot_min"`
	LootMax         int     `yaml:"loot_max"`
	MaxRounds       int     `yaml:"max_rounds"` // Pirates break off after this many rounds
}

// Port represents a static trading location.
type Port struct {
	Key             string    `yaml:"key" json:"key"`                           // Unique ID (e.g., "hong_kong")
	Name            string    `yaml:"name" json:"name"`                         // Display Name
	Coordinates     []float64 `yaml:"coordinates" json:"coordinates"`           // [Lat, Lon] in degrees
	FeeMultiplier   float64   `yaml:"fee_multiplier" json:"fee_multiplier"`     // Scales the flat sailing fee into this port
	PriceMultiplier float64   `yaml:"price_multiplier" json:"price_multiplier"` // Scales every base price here (0 = 1.0)
}

// Good represents a tradeable commodity.
type Good struct {
	Key        string  `yaml:"key" json:"key"`                                   // Unique ID (e.g., "opium")
	Name       string  `yaml:"name" json:"name"`                                 // Display Name
	BasePrice  int     `yaml:"base_price" json:"base_price"`                     // Baseline price before port and market multipliers
	Volume     int     `yaml:"volume" json:"volume"`                             // Hold space per unit
	Volatility float64 `yaml:"volatility,omitempty" json:"volatility,omitempty"` // Price noise half-width; 0 = market default
}

// Universe is the root configuration struct, mapping to the entire 'universe.yaml' file.
type Universe struct {
	Balance GameBalance  `yaml:"game_balance" json:"game_balance"`
	Market  MarketConfig `yaml:"market" json:"market"`
	Combat  CombatConfig `yaml:"combat" json:"-"`
	Ports   []Port       `yaml:"ports" json:"ports"`
	Goods   []Good       `yaml:"goods" json:"goods"`
}

// ScarcityKind is the state of a per-good market event.
type ScarcityKind string

const (
	ScarcityNone ScarcityKind = "none"
	Scarce       ScarcityKind = "scarcity"
	Glut         ScarcityKind = "glut"
)

// Scarcity tracks the market event of one good. It survives price recomputation.
type Scarcity struct {
	Kind  ScarcityKind `json:"type"`
	Turns int          `json:"turns"`
}

// GameState is the whole mutable game. It is owned by exactly one Engine.
type GameState struct {
	GameID string `json:"game_id"` // Runtime ID, also used to name save slots and event logs
	Turn   int    `json:"turn"`    // Starts at 1, +1 per voyage
	Port   string `json:"port"`    // Current Port Key

	Cash int `json:"cash"`
	Bank int `json:"bank"`
	Debt int `json:"debt"`

	Protection      bool `json:"protection"`
	ProtectionTimer int  `json:"protection_timer"` // Voyages of protection left

	ShipHP    int `json:"ship_hp"`
	ShipMaxHP int `json:"ship_max_hp"`
	Guns      int `json:"guns"`

	HoldCapacity int            `json:"hold_capacity"`
	Cargo        map[string]int `json:"cargo"` // Good Key -> units on board

	PriceMap map[string]int      `json:"price_map"` // Good Key -> unit price at the current port
	Scarcity map[string]Scarcity `json:"scarcity"`  // Good Key -> market event

	GameOver       bool   `json:"game_over"`
	Retired        bool   `json:"retired"`
	GameOverReason string `json:"game_over_reason,omitempty"`
}
