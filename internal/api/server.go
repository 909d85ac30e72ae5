/*
Package api
File: server.go
Description:
    The Server is the host of one game. It owns the Engine behind a single
    lock, the optional save store and the WebSocket hub, and wires them to
    the HTTP router.

    Every action follows the same path:
    1. Lock, run the engine operation, snapshot state and drain events.
    2. Unlock, append the events to the store's log.
    3. Publish the update on the hub and reply with the same payload.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/everforgeworks/sea-tycoon/internal/game"
	"github.com/everforgeworks/sea-tycoon/internal/persistence"
)

// AutosaveSlot is the slot written by Autosave.
const AutosaveSlot = "autosave"

// Options tunes the HTTP surface.
type Options struct {
	RequestsPerSecond float64 // Per client IP; 0 disables limiting
	Burst             int
}

// Server hosts one game.
type Server struct {
	mu     sync.Mutex // Guards engine and lastSaved
	engine *game.Engine
	store  *persistence.Store // May be nil: saves are disabled
	hub    *Hub
	logger *slog.Logger
	opts   Options

	lastSaved string // Snapshot written by the last autosave

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// ActionResponse is the reply to every action and the payload of hub updates.
type ActionResponse struct {
	State    game.GameState `json:"state"`
	NetWorth int            `json:"net_worth"`
	HoldUsed int            `json:"hold_used"`
	Events   []game.Event   `json:"events"`
	Error    string         `json:"error,omitempty"`
}

// NewServer creates a Server. store may be nil.
func NewServer(engine *game.Engine, store *persistence.Store, hub *Hub, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		engine:   engine,
		store:    store,
		hub:      hub,
		logger:   logger,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler returns the router with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Information Endpoints
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("GET /api/ports", s.handleGetPorts)
	mux.HandleFunc("GET /api/goods", s.handleGetGoods)
	mux.HandleFunc("GET /api/voyage/quote", s.handleVoyageQuote)
	mux.HandleFunc("GET /api/saves", s.handleListSaves)
	mux.HandleFunc("GET /api/events", s.handleRecentEvents)

	// Action Endpoints
	mux.HandleFunc("POST /api/new", s.handleNewGame)
	mux.HandleFunc("POST /api/buy", s.handleBuy)
	mux.HandleFunc("POST /api/sell", s.handleSell)
	mux.HandleFunc("POST /api/bank/deposit", s.handleDeposit)
	mux.HandleFunc("POST /api/bank/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /api/debt/borrow", s.handleBorrow)
	mux.HandleFunc("POST /api/debt/repay", s.handleRepay)
	mux.HandleFunc("POST /api/protection", s.handleProtection)
	mux.HandleFunc("POST /api/repair", s.handleRepair)
	mux.HandleFunc("POST /api/sail", s.handleSail)
	mux.HandleFunc("POST /api/retire", s.handleRetire)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("POST /api/load", s.handleLoad)

	// Real-Time WebSocket Endpoint
	mux.HandleFunc("GET /ws", s.hub.ServeWs)

	return corsMiddleware(s.rateLimit(mux))
}

// act runs one engine operation and reports its outcome.
func (s *Server) act(w http.ResponseWriter, r *http.Request, op string, fn func(e *game.Engine) error) {
	s.mu.Lock()
	err := fn(s.engine)
	resp := s.snapshotLocked()
	resp.Events = s.engine.Drain()
	s.mu.Unlock()

	if err != nil {
		resp.Error = err.Error()
		s.logger.Debug("action rejected", "op", op, "err", err)
	}
	s.record(r.Context(), resp)
	writeJSON(w, statusFor(err), resp)
}

// snapshotLocked must be called with s.mu held.
func (s *Server) snapshotLocked() ActionResponse {
	return ActionResponse{
		State:    s.engine.State(),
		NetWorth: s.engine.NetWorth(),
		HoldUsed: s.engine.HoldUsed(),
		Events:   []game.Event{},
	}
}

// record logs the events of an action to the store and publishes the update.
func (s *Server) record(ctx context.Context, resp ActionResponse) {
	if s.store != nil && len(resp.Events) > 0 {
		if err := s.store.AppendEvents(ctx, resp.State.GameID, resp.Events); err != nil {
			s.logger.Error("append events", "game_id", resp.State.GameID, "err", err)
		}
	}
	s.hub.Publish(Message{Type: "update", Payload: resp, Sender: "engine"})
}

// Autosave writes the game to AutosaveSlot if it changed since the last
// autosave. It reports whether anything was written.
func (s *Server) Autosave(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	s.mu.Lock()
	st := s.engine.State()
	nw := s.engine.NetWorth()
	s.mu.Unlock()

	raw, err := game.EncodeSave(&st)
	if err != nil {
		return false, err
	}
	key := string(raw)
	s.mu.Lock()
	unchanged := key == s.lastSaved
	s.mu.Unlock()
	if unchanged {
		return false, nil
	}

	meta := persistence.Slot{Name: AutosaveSlot, GameID: st.GameID, Turn: st.Turn, NetWorth: nw}
	if err := s.store.SaveSlotData(ctx, meta, raw); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.lastSaved = key
	s.mu.Unlock()
	return true, nil
}

// statusFor maps engine and store errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, game.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, game.ErrInsufficientCargo), errors.Is(err, game.ErrInsufficientHoldSpace):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidLocation):
		return http.StatusForbidden
	case errors.Is(err, game.ErrInvalidDestination), errors.Is(err, persistence.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrGameOver):
		return http.StatusGone
	case errors.Is(err, game.ErrInvalidQuantity), errors.Is(err, game.ErrUnknownGood),
		errors.Is(err, game.ErrInvalidSaveData), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError replies with {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// rateLimit applies a token bucket per client IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.opts.RequestsPerSecond <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter(clientIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(ip string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()

	l, ok := s.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.opts.RequestsPerSecond), max(1, s.opts.Burst))
		s.limiters[ip] = l
	}
	return l
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// corsMiddleware lets a browser client served from another origin talk to us.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
