/*
Package game
File: economy.go
Description:
    Handles the market simulation of the ports.
    This includes:
    1. A bounded random walk of every price around its base value.
    2. Per-port price influence.
    3. Scarcity/glut events that persist across several arrivals.
*/

package game

import "math"

// volatility returns the price noise half-width of a good.
// Only a few goods override the market default.
func (u *Universe) volatility(g *Good) float64 {
	if g.Volatility > 0 {
		return g.Volatility
	}
	return u.Market.DefaultVolatility
}

// recomputePrices replaces s.PriceMap with fresh prices for portKey and
// advances every good's scarcity event by one step.
//
// Event ordering: an active event is decremented before its modifier is
// applied, and only lapses to "none" on the recomputation after it reaches
// zero turns. An event that starts with d turns therefore affects d+1
// recomputations.
func recomputePrices(u *Universe, s *GameState, portKey string, r Rand, log *eventLog) {
	port := u.GetPort(portKey)
	portMult := 1.0
	portName := portKey
	if port != nil {
		portMult = multiplier(port.PriceMultiplier)
		portName = port.Name
	}
	if s.Scarcity == nil {
		s.Scarcity = make(map[string]Scarcity, len(u.Goods))
	}

	prices := make(map[string]int, len(u.Goods))
	for i := range u.Goods {
		g := &u.Goods[i]

		// 1. Random walk around base, with port influence
		vol := u.volatility(g)
		noise := (r.Float64()*2 - 1) * vol
		price := math.Max(1, math.Round(float64(g.BasePrice)*portMult*(1+noise)))

		// 2. Advance the event state machine
		sc, ok := s.Scarcity[g.Key]
		if !ok || sc.Kind == "" {
			sc = Scarcity{Kind: ScarcityNone}
		}
		if sc.Turns <= 0 {
			sc = Scarcity{Kind: ScarcityNone}
			if chance(r, u.Market.EventChance) {
				sc.Kind = Glut
				if chance(r, 0.5) {
					sc.Kind = Scarce
				}
				sc.Turns = rnd(r, u.Market.EventMinTurns, u.Market.EventMaxTurns)
				if sc.Kind == Scarce {
					log.add(s.Turn, SeverityWarn, "%s is scarce in %s!", g.Name, portName)
				} else {
					log.add(s.Turn, SeverityOK, "%s glut in supply in %s!", g.Name, portName)
				}
			}
		} else {
			sc.Turns--
		}
		s.Scarcity[g.Key] = sc

		// 3. Apply event modifier
		switch sc.Kind {
		case Scarce:
			price = math.Round(price * u.Market.ScarcityMultiplier)
		case Glut:
			price = math.Round(price * u.Market.GlutMultiplier)
		}

		prices[g.Key] = int(math.Max(1, price))
	}
	s.PriceMap = prices
}

// priceOf returns the current price of a good, falling back to its base price
// when no price has been computed yet.
func (u *Universe) priceOf(s *GameState, key string) int {
	if p, ok := s.PriceMap[key]; ok && p > 0 {
		return p
	}
	if g := u.GetGood(key); g != nil {
		return g.BasePrice
	}
	return 0
}
