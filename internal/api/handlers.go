/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions decode JSON requests, call the Engine under the
    server lock and return JSON responses.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Are required fields present?)
    - State Modification (only ever through Engine operations)
    - Persistence (save slots and the event log, when a store is configured)
*/

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/everforgeworks/sea-tycoon/internal/game"
	"github.com/everforgeworks/sea-tycoon/internal/persistence"
)

var (
	errBadRequest = errors.New("bad request")
	errNoStore    = errors.New("saving is disabled on this server")
)

// Request DTOs

type TradeRequest struct {
	Good     string `json:"good"`
	Quantity int    `json:"quantity"`
}

type AmountRequest struct {
	Amount int `json:"amount"`
}

type SailRequest struct {
	Destination string `json:"destination"`
}

type SaveRequest struct {
	Slot string `json:"slot"`
}

// LoadRequest restores either a stored slot or an inline snapshot.
type LoadRequest struct {
	Slot string          `json:"slot"`
	Data json.RawMessage `json:"data"`
}

// Response views

type PortView struct {
	game.Port
	Current bool        `json:"current"`
	Bank    bool        `json:"bank"`
	Quote   *game.Quote `json:"quote,omitempty"` // Absent for the current port
}

type GoodView struct {
	game.Good
	Price         int               `json:"price"`
	Held          int               `json:"held"`
	MaxAffordable int               `json:"max_affordable"`
	Event         game.ScarcityKind `json:"event"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// handleGetState returns the current snapshot without draining events.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := s.snapshotLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleGetPorts lists every port with a voyage quote from the current one.
func (s *Server) handleGetPorts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.engine.Universe()
	here := s.engine.State().Port
	views := make([]PortView, 0, len(u.Ports))
	for _, p := range u.Ports {
		v := PortView{Port: p, Current: p.Key == here, Bank: p.Key == u.Balance.BankPort}
		if !v.Current {
			if q, err := s.engine.Quote(p.Key); err == nil {
				v.Quote = &q
			}
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetGoods lists the market of the current port.
// ?dest= makes max_affordable keep the sailing fee to that port in hand.
func (s *Server) handleGetGoods(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("dest")

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.engine.Universe()
	st := s.engine.State()
	views := make([]GoodView, 0, len(u.Goods))
	for _, g := range u.Goods {
		event := st.Scarcity[g.Key].Kind
		if event == "" {
			event = game.ScarcityNone
		}
		views = append(views, GoodView{
			Good:          g,
			Price:         st.PriceMap[g.Key],
			Held:          st.Cargo[g.Key],
			MaxAffordable: s.engine.MaxAffordable(g.Key, dest),
			Event:         event,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleVoyageQuote is the pre-departure check: distance, fee and risk.
// It never changes the game.
func (s *Server) handleVoyageQuote(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("dest")
	if dest == "" {
		writeError(w, http.StatusBadRequest, "dest is required")
		return
	}

	s.mu.Lock()
	q, err := s.engine.Quote(dest)
	s.mu.Unlock()

	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}
	slots, err := s.store.ListSlots(r.Context())
	if err != nil {
		s.logger.Error("list saves", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to list saves")
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// handleRecentEvents returns the logged notifications of the current game.
func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	s.mu.Lock()
	gameID := s.engine.State().GameID
	s.mu.Unlock()

	events, err := s.store.RecentEvents(r.Context(), gameID, limit)
	if err != nil {
		s.logger.Error("recent events", "game_id", gameID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "new", func(e *game.Engine) error {
		e.NewGame()
		return nil
	})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.act(w, r, "buy", func(e *game.Engine) error { return e.Buy(req.Good, req.Quantity) })
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.act(w, r, "sell", func(e *game.Engine) error { return e.Sell(req.Good, req.Quantity) })
}

// amountAction handles the bank and debt endpoints, which all take {"amount": n}.
func (s *Server) amountAction(op string, fn func(e *game.Engine, amount int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AmountRequest
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.act(w, r, op, func(e *game.Engine) error { return fn(e, req.Amount) })
	}
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.amountAction("deposit", (*game.Engine).Deposit)(w, r)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.amountAction("withdraw", (*game.Engine).Withdraw)(w, r)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	s.amountAction("borrow", (*game.Engine).Borrow)(w, r)
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	s.amountAction("repay", (*game.Engine).Repay)(w, r)
}

func (s *Server) handleProtection(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "protection", (*game.Engine).PayProtection)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "repair", (*game.Engine).RepairShip)
}

// handleSail runs a whole voyage. A sunk or wrecked ship is a 200 with
// state.game_over set, not an error.
func (s *Server) handleSail(w http.ResponseWriter, r *http.Request) {
	var req SailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.act(w, r, "sail", func(e *game.Engine) error { return e.SailTo(req.Destination) })
}

func (s *Server) handleRetire(w http.ResponseWriter, r *http.Request) {
	s.act(w, r, "retire", (*game.Engine).Retire)
}

// handleSave writes the game to a named slot ("quicksave" by default).
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}
	var req SaveRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.Slot == "" {
		req.Slot = "quicksave"
	}

	s.act(w, r, "save", func(e *game.Engine) error {
		st := e.State()
		meta := persistence.Slot{Name: req.Slot, GameID: st.GameID, Turn: st.Turn, NetWorth: e.NetWorth()}
		_, err := e.Save(func(data []byte) error {
			if err := s.store.SaveSlotData(r.Context(), meta, data); err != nil {
				return fmt.Errorf("save slot %q: %w", req.Slot, err)
			}
			return nil
		})
		return err
	})
}

// handleLoad restores a slot, or an inline snapshot given as "data".
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// "data": null is the same as no data.
	inline := len(req.Data) > 0 && !bytes.Equal(req.Data, []byte("null"))
	if req.Slot == "" && !inline {
		writeError(w, http.StatusBadRequest, "slot or data is required")
		return
	}
	if !inline && s.store == nil {
		writeError(w, http.StatusServiceUnavailable, errNoStore.Error())
		return
	}

	s.act(w, r, "load", func(e *game.Engine) error {
		data := []byte(req.Data)
		if !inline {
			var err error
			if data, err = s.store.LoadSlot(r.Context(), req.Slot); err != nil {
				return err
			}
		}
		return e.Load(data)
	})
}
