/*
Package game
File: engine.go
Description:
    The Economy Engine: the only writer of a GameState.

    Every public operation validates its preconditions first and then
    either applies all of its changes or none of them. Failures are
    returned as wrapped sentinel errors and also written to the
    notification sink, so the presentation layer can simply drain and
    display. Terminal outcomes (sunk, wrecked, bankrupt, retired) are
    recorded on the state, not returned as errors.

    An Engine is not safe for concurrent use.
*/

package game

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Engine owns one game.
type Engine struct {
	u      *Universe
	s      *GameState
	rng    Rand
	events eventLog
	logger *slog.Logger
}

// NewEngine starts a new game in universe u. A nil logger discards output.
func NewEngine(u *Universe, rng Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{u: u, rng: rng, logger: logger}
	e.NewGame()
	return e
}

// NewGame discards the current game and starts over at the starting port.
func (e *Engine) NewGame() {
	e.s = NewState(e.u)
	e.s.GameID = uuid.NewString()
	e.events = eventLog{}
	e.RecomputePrices()
	e.notify(SeverityOK, "A new venture begins in %s.", e.portName(e.s.Port))
	e.logger.Debug("new game", "game_id", e.s.GameID, "port", e.s.Port)
}

// Universe returns the reference data the engine runs on.
func (e *Engine) Universe() *Universe { return e.u }

// State returns a deep copy of the current game state.
func (e *Engine) State() GameState { return e.s.Clone() }

// Drain returns the notifications produced since the last call, oldest first.
func (e *Engine) Drain() []Event { return e.events.drain() }

// RecomputePrices sets prices for the current port. The engine calls it on
// every arrival, at game start and after loading.
func (e *Engine) RecomputePrices() {
	recomputePrices(e.u, e.s, e.s.Port, e.rng, &e.events)
}

func (e *Engine) notify(sev Severity, format string, args ...any) {
	e.events.add(e.s.Turn, sev, format, args...)
}

// reject reports a failed operation and returns its error.
func (e *Engine) reject(err error, format string, args ...any) error {
	e.notify(SeverityBad, format, args...)
	return err
}

func (e *Engine) checkRunning() error {
	if e.s.GameOver {
		return e.reject(ErrGameOver, "The game is over. Start a new game to keep trading.")
	}
	return nil
}

func (e *Engine) portName(key string) string {
	if p := e.u.GetPort(key); p != nil {
		return p.Name
	}
	return key
}

// HoldUsed is the cargo volume currently on board.
func (e *Engine) HoldUsed() int {
	used := 0
	for _, g := range e.u.Goods {
		used += e.s.Cargo[g.Key] * g.Volume
	}
	return used
}

// NetWorth is cash + bank - debt + cargo at half its current price.
func (e *Engine) NetWorth() int {
	cargoVal := 0.0
	for _, g := range e.u.Goods {
		qty := e.s.Cargo[g.Key]
		cargoVal += float64(qty) * float64(e.u.priceOf(e.s, g.Key)) * 0.5
	}
	return e.s.Cash + e.s.Bank - e.s.Debt + int(math.Floor(cargoVal))
}

// PirateChance is the encounter probability of the next voyage, for display.
func (e *Engine) PirateChance() float64 {
	return e.u.PirateChance(e.s.Protection)
}

// Buy purchases qty units of a good at the current port price.
func (e *Engine) Buy(key string, qty int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	g := e.u.GetGood(key)
	if g == nil {
		return e.reject(fmt.Errorf("buy %q: %w", key, ErrUnknownGood), "There is no %s for sale here.", key)
	}
	if qty <= 0 {
		return e.reject(fmt.Errorf("buy %d %s: %w", qty, key, ErrInvalidQuantity), "Enter a positive quantity.")
	}
	// Compare by division so huge quantities cannot wrap the products.
	price := e.u.priceOf(e.s, key)
	if qty > e.s.Cash/price {
		return e.reject(fmt.Errorf("buy %d %s at %d: %w", qty, key, price, ErrInsufficientFunds), "Not enough cash.")
	}
	if qty > (e.s.HoldCapacity-e.HoldUsed())/g.Volume {
		return e.reject(fmt.Errorf("buy %d %s: %w", qty, key, ErrInsufficientHoldSpace), "Not enough hold space.")
	}

	cost := price * qty
	e.s.Cash -= cost
	e.s.Cargo[key] += qty
	e.notify(SeverityInfo, "Bought %d %s for %s.", qty, g.Name, FormatMoney(cost))
	return nil
}

// Sell sells qty units of a held good at the current port price.
func (e *Engine) Sell(key string, qty int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	g := e.u.GetGood(key)
	if g == nil {
		return e.reject(fmt.Errorf("sell %q: %w", key, ErrUnknownGood), "Nobody here trades in %s.", key)
	}
	if qty <= 0 {
		return e.reject(fmt.Errorf("sell %d %s: %w", qty, key, ErrInvalidQuantity), "Enter a positive quantity.")
	}
	have := e.s.Cargo[key]
	if qty > have {
		return e.reject(fmt.Errorf("sell %d %s, have %d: %w", qty, key, have, ErrInsufficientCargo), "You don't have that much.")
	}

	price := e.u.priceOf(e.s, key)
	if qty > (math.MaxInt-e.s.Cash)/price {
		return e.reject(fmt.Errorf("sell %d %s: %w", qty, key, ErrInvalidQuantity), "That sale is more than your purse can hold.")
	}
	revenue := price * qty
	e.s.Cargo[key] = have - qty
	e.s.Cash += revenue
	e.notify(SeverityOK, "Sold %d %s for %s.", qty, g.Name, FormatMoney(revenue))
	return nil
}

// MaxAffordable is the largest quantity of a good that leaves enough cash for
// the sailing fee to dest (if any) and fits in the hold.
func (e *Engine) MaxAffordable(key, dest string) int {
	g := e.u.GetGood(key)
	price := e.u.priceOf(e.s, key)
	if g == nil || price <= 0 {
		return 0
	}
	fee := 0
	if dest != "" {
		if v, err := e.u.VoyageMetrics(e.s.Port, dest); err == nil {
			fee = v.Fee
		}
	}
	byCash := (e.s.Cash - fee) / price
	byHold := (e.s.HoldCapacity - e.HoldUsed()) / g.Volume
	return max(0, min(byCash, byHold))
}

// overflows reports whether total+amount would exceed MaxInt.
// Both are non-negative.
func overflows(total, amount int) bool {
	return amount > math.MaxInt-total
}

func (e *Engine) atBank() error {
	if e.s.Port != e.u.Balance.BankPort {
		return e.reject(fmt.Errorf("bank at %s: %w", e.s.Port, ErrInvalidLocation),
			"Bank is only in %s.", e.portName(e.u.Balance.BankPort))
	}
	return nil
}

// Deposit moves cash into the bank. Only available at the bank port.
func (e *Engine) Deposit(amount int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if err := e.atBank(); err != nil {
		return err
	}
	if amount <= 0 {
		return e.reject(fmt.Errorf("deposit %d: %w", amount, ErrInvalidQuantity), "Enter a positive amount.")
	}
	if e.s.Cash < amount {
		return e.reject(fmt.Errorf("deposit %d: %w", amount, ErrInsufficientFunds), "Not enough cash.")
	}
	if overflows(e.s.Bank, amount) {
		return e.reject(fmt.Errorf("deposit %d: %w", amount, ErrInvalidQuantity), "The bank cannot hold that much.")
	}
	e.s.Cash -= amount
	e.s.Bank += amount
	e.notify(SeverityOK, "Deposited %s.", FormatMoney(amount))
	return nil
}

// Withdraw moves money from the bank to cash. Only available at the bank port.
func (e *Engine) Withdraw(amount int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if err := e.atBank(); err != nil {
		return err
	}
	if amount <= 0 {
		return e.reject(fmt.Errorf("withdraw %d: %w", amount, ErrInvalidQuantity), "Enter a positive amount.")
	}
	if e.s.Bank < amount {
		return e.reject(fmt.Errorf("withdraw %d: %w", amount, ErrInsufficientFunds), "Insufficient bank balance.")
	}
	if overflows(e.s.Cash, amount) {
		return e.reject(fmt.Errorf("withdraw %d: %w", amount, ErrInvalidQuantity), "Your purse cannot hold that much.")
	}
	e.s.Bank -= amount
	e.s.Cash += amount
	e.notify(SeverityOK, "Withdrew %s.", FormatMoney(amount))
	return nil
}

// Borrow takes a loan from Jia. There is no credit limit.
func (e *Engine) Borrow(amount int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if amount <= 0 {
		return e.reject(fmt.Errorf("borrow %d: %w", amount, ErrInvalidQuantity), "Enter a positive amount.")
	}
	if overflows(e.s.Cash, amount) || overflows(e.s.Debt, amount) {
		return e.reject(fmt.Errorf("borrow %d: %w", amount, ErrInvalidQuantity), "Jia will not lend that much.")
	}
	e.s.Debt += amount
	e.s.Cash += amount
	e.notify(SeverityWarn, "Borrowed %s from Jia.", FormatMoney(amount))
	e.CheckBankruptcy()
	return nil
}

// Repay pays back min(amount, debt). The full requested amount must be on hand.
func (e *Engine) Repay(amount int) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if amount <= 0 {
		return e.reject(fmt.Errorf("repay %d: %w", amount, ErrInvalidQuantity), "Enter a positive amount.")
	}
	if e.s.Cash < amount {
		return e.reject(fmt.Errorf("repay %d: %w", amount, ErrInsufficientFunds), "Not enough cash.")
	}
	amount = min(amount, e.s.Debt)
	e.s.Debt -= amount
	e.s.Cash -= amount
	e.notify(SeverityOK, "Repaid %s to Jia.", FormatMoney(amount))
	return nil
}

// PayProtection buys Zheng's protection. Paying again while protected resets
// the timer instead of extending it.
func (e *Engine) PayProtection() error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	fee := e.u.ProtectionFee(e.s.Turn)
	if e.s.Cash < fee {
		return e.reject(fmt.Errorf("protection fee %d: %w", fee, ErrInsufficientFunds), "Not enough cash to pay Zheng.")
	}
	voyages := e.u.Balance.ProtectionVoyages
	e.s.Cash -= fee
	e.s.Protection = voyages > 0
	e.s.ProtectionTimer = voyages
	e.notify(SeverityOK, "Paid %s to Zheng for protection (%d voyages).", FormatMoney(fee), voyages)
	return nil
}

// RepairShip restores the hull to full. A ship in top shape costs nothing.
func (e *Engine) RepairShip() error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	dmg := e.s.ShipMaxHP - e.s.ShipHP
	if dmg <= 0 {
		e.notify(SeverityInfo, "Ship is already in top shape.")
		return nil
	}
	cost := dmg * e.u.Balance.RepairPerHP
	if e.s.Cash < cost {
		return e.reject(fmt.Errorf("repair %d hp for %d: %w", dmg, cost, ErrInsufficientFunds), "Not enough cash to repair fully.")
	}
	e.s.Cash -= cost
	e.s.ShipHP = e.s.ShipMaxHP
	e.notify(SeverityOK, "Ship fully repaired for %s.", FormatMoney(cost))
	return nil
}

// Quote is the pre-flight estimate shown before departure.
type Quote struct {
	Voyage
	PirateChance float64 `json:"pirate_chance"`
	CanAfford    bool    `json:"can_afford"`
}

// Quote estimates a voyage to dest without changing anything.
func (e *Engine) Quote(dest string) (Quote, error) {
	if dest == e.s.Port {
		return Quote{}, fmt.Errorf("already in %s: %w", dest, ErrInvalidDestination)
	}
	v, err := e.u.VoyageMetrics(e.s.Port, dest)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Voyage: v, PirateChance: e.PirateChance(), CanAfford: e.s.Cash >= v.Fee}, nil
}

// SailTo departs for dest. A voyage advances the turn, charges interest and
// the sailing fee, wears down protection, may meet pirates, wears the hull
// and finally reprices the market at the destination.
func (e *Engine) SailTo(dest string) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if e.u.GetPort(dest) == nil || dest == e.s.Port {
		return e.reject(fmt.Errorf("sail to %q: %w", dest, ErrInvalidDestination), "You cannot sail to %s.", dest)
	}
	v, err := e.u.VoyageMetrics(e.s.Port, dest)
	if err != nil {
		return e.reject(err, "You cannot sail to %s.", dest)
	}
	destName := e.portName(dest)
	if e.s.Cash < v.Fee {
		return e.reject(fmt.Errorf("sail to %s, fee %d: %w", dest, v.Fee, ErrInsufficientFunds),
			"You need %s to cover sailing costs to %s.", FormatMoney(v.Fee), destName)
	}

	// 1. Advance the voyage (turn) and apply interest
	e.s.Turn++
	e.applyInterest()

	// 2. Deduct sailing fee at departure
	e.s.Cash -= v.Fee
	e.notify(SeverityMuted, "Paid %s in sailing costs to %s (%s nm).", FormatMoney(v.Fee), destName, humanize.Comma(int64(v.DistanceNm)))

	// 3. Protection decay
	if e.s.Protection {
		e.s.ProtectionTimer--
		if e.s.ProtectionTimer <= 0 {
			e.s.Protection = false
			e.s.ProtectionTimer = 0
			e.notify(SeverityWarn, "Zheng's protection has expired.")
		}
	}

	// 4. Encounter check
	if chance(e.rng, e.PirateChance()) {
		e.pirateEncounter()
		if e.s.GameOver {
			return nil
		}
	} else {
		e.notify(SeverityInfo, "Uneventful seas en route to %s.", destName)
	}

	// 5. Arrive, then wear-and-tear (may end the game)
	e.s.Port = dest
	e.logger.Debug("arrived", "game_id", e.s.GameID, "turn", e.s.Turn, "port", dest, "km", v.DistanceKm)
	if e.applyWear(v.DistanceKm) {
		return nil
	}

	e.RecomputePrices()
	e.CheckBankruptcy()
	return nil
}

func (e *Engine) applyInterest() {
	if e.s.Debt <= 0 {
		return
	}
	// Debt saturates at MaxInt instead of wrapping.
	inc := math.MaxInt - e.s.Debt
	if f := math.Ceil(float64(e.s.Debt) * e.u.Balance.InterestRate); f < float64(inc) {
		inc = int(f)
	}
	e.s.Debt += inc
	e.notify(SeverityWarn, "Interest accrued on debt: %s (%g%%).", FormatMoney(inc), e.u.Balance.InterestRate*100)
}

func (e *Engine) pirateEncounter() {
	e.notify(SeverityWarn, "Pirates sighted on the horizon!")
	enc := ResolveEncounter(e.u.Combat, e.s.ShipHP, e.s.Guns, e.rng)
	e.logger.Debug("pirate encounter", "game_id", e.s.GameID, "outcome", enc.Outcome.String(),
		"rounds", len(enc.Rounds), "pirate_hp", enc.PirateHP, "pirate_guns", enc.PirateGuns)

	for _, rd := range enc.Rounds {
		if rd.FleeAttempted && !rd.Escaped {
			e.notify(SeverityBad, "Failed to escape!")
		}
		if rd.Escaped {
			break
		}
		e.notify(SeverityInfo, "Your guns deal %d damage to pirates.", rd.PlayerDamage)
		if rd.PirateFired {
			sev := SeverityInfo
			if rd.PirateDamage > 0 {
				sev = SeverityBad
			}
			e.notify(sev, "Pirates hit you for %d damage.", rd.PirateDamage)
		}
	}
	e.s.ShipHP = max(0, enc.FinalShipHP)

	switch enc.Outcome {
	case OutcomeFled:
		if enc.BrokeOff {
			e.notify(SeverityOK, "The pirates break off and sail away.")
		} else {
			e.notify(SeverityOK, "You slipped away from the pirates!")
		}
	case OutcomeShipLost:
		e.endGame("Your ship was sunk by pirates!")
	case OutcomeWon:
		e.notify(SeverityOK, "Pirates defeated! The sea is yours.")
		e.s.Cash += min(enc.Loot, math.MaxInt-e.s.Cash)
		e.notify(SeverityOK, "You loot %s from the pirate wreckage.", FormatMoney(enc.Loot))
	}
}

// applyWear damages the hull after a voyage and reports whether it ended the game.
func (e *Engine) applyWear(km int) bool {
	wear := e.u.WearLoss(km, e.rng)
	if wear <= 0 {
		return false
	}
	e.s.ShipHP = max(0, e.s.ShipHP-wear)
	e.notify(SeverityWarn, "Voyage wear-and-tear: hull loses %d HP.", wear)
	if e.s.ShipHP <= 0 {
		e.endGame("Your ship fell apart upon arrival due to cumulative damage.")
		return true
	}
	return false
}

// Retire ends the game in victory once cash + bank reaches the target.
func (e *Engine) Retire() error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	target := e.u.Balance.RetireTarget
	fortune := e.s.Cash + e.s.Bank
	if fortune < target {
		return e.reject(fmt.Errorf("retire with %d of %d: %w", fortune, target, ErrInsufficientFunds),
			"You consider retiring, but %s in liquid assets is the traditional goal.", FormatMoney(target))
	}
	e.s.Retired = true
	e.s.GameOver = true
	e.s.GameOverReason = "Retired"
	e.notify(SeverityOK, "You retire in splendor with a fortune of %s (net worth %s).", FormatMoney(fortune), FormatMoney(e.NetWorth()))
	e.notify(SeverityInfo, "Game over. Congratulations!")
	e.logger.Info("retired", "game_id", e.s.GameID, "turn", e.s.Turn, "fortune", fortune)
	return nil
}

// CheckBankruptcy ends the game when net worth falls below the floor.
// It reports whether the game ended.
func (e *Engine) CheckBankruptcy() bool {
	if e.s.GameOver {
		return false
	}
	if e.NetWorth() < e.u.Balance.BankruptAt {
		e.endGame("Bankrupted. Your creditors have taken everything.")
		return true
	}
	return false
}

func (e *Engine) endGame(reason string) {
	e.s.GameOver = true
	e.s.GameOverReason = reason
	e.notify(SeverityBad, "%s", reason)
	nw := e.NetWorth()
	e.notify(SeverityMuted, "Final net worth: %s.", FormatMoney(nw))
	e.logger.Info("game over", "game_id", e.s.GameID, "turn", e.s.Turn, "reason", reason, "net_worth", nw)
}
