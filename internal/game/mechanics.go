/*
Package game
File: mechanics.go
Description:
    Contains the voyage "physics": lookups, great-circle distances,
    sailing fees, hull wear and pirate encounter odds.
    Everything here is a pure function of the universe and its inputs,
    except WearLoss which draws from the injected random source.
*/

package game

import (
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0
	nmPerKm       = 0.5399568
)

// GetPort is a helper to retrieve a Port pointer by its Key.
// Returns nil if not found.
func (u *Universe) GetPort(key string) *Port {
	for i := range u.Ports {
		if u.Ports[i].Key == key {
			return &u.Ports[i]
		}
	}
	return nil
}

// GetGood is a helper to retrieve a Good pointer by its Key.
func (u *Universe) GetGood(key string) *Good {
	for i := range u.Goods {
		if u.Goods[i].Key == key {
			return &u.Goods[i]
		}
	}
	return nil
}

// Voyage describes the deterministic cost of one leg.
type Voyage struct {
	From       string `json:"from"`
	To         string `json:"to"`
	DistanceKm int    `json:"distance_km"`
	DistanceNm int    `json:"distance_nm"`
	Fee        int    `json:"fee"`
}

// VoyageMetrics computes distance and sailing fee between two ports.
// Distance is symmetric; the fee depends on the destination's fee multiplier.
func (u *Universe) VoyageMetrics(from, to string) (Voyage, error) {
	a, b := u.GetPort(from), u.GetPort(to)
	if a == nil {
		return Voyage{}, fmt.Errorf("port %q: %w", from, ErrInvalidDestination)
	}
	if b == nil {
		return Voyage{}, fmt.Errorf("port %q: %w", to, ErrInvalidDestination)
	}

	km := int(math.Round(haversine(a.Coordinates[0], a.Coordinates[1], b.Coordinates[0], b.Coordinates[1])))
	nm := int(math.Round(float64(km) * nmPerKm))

	// Flat fee into the destination plus a distance surcharge.
	baseFee := int(math.Round(u.Balance.BaseSailingFee * multiplier(b.FeeMultiplier)))
	fee := baseFee + int(math.Round(float64(km)*u.Balance.FeePerKm))

	return Voyage{From: from, To: to, DistanceKm: km, DistanceNm: nm, Fee: fee}, nil
}

// WearLoss returns the hull points lost on a voyage of km kilometres:
// one point per KmPerWear plus U{0..MaxRandomWear}.
func (u *Universe) WearLoss(km int, r Rand) int {
	wear := 0
	if u.Balance.KmPerWear > 0 {
		wear = km / u.Balance.KmPerWear
	}
	wear += rnd(r, 0, u.Balance.MaxRandomWear)
	if wear < 0 {
		return 0
	}
	return wear
}

// PirateChance is the probability of an encounter on the next voyage.
func (u *Universe) PirateChance(protected bool) float64 {
	if protected {
		return u.Balance.PirateChance * u.Balance.ProtectedPirateFactor
	}
	return u.Balance.PirateChance
}

// ProtectionFee is what Zheng charges on the given turn.
func (u *Universe) ProtectionFee(turn int) int {
	return u.Balance.ProtectionBaseFee + max(0, u.Balance.ProtectionPerTurn*turn)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// multiplier treats an unset (zero) multiplier as neutral.
func multiplier(m float64) float64 {
	if m == 0 {
		return 1.0
	}
	return m
}
