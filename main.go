/*
Package main
File: main.go
Description: Server entry point. Loads the universe, opens the save store,
resumes the autosaved game (if any), starts the real-time WebSocket hub and
serves the JSON API until SIGINT/SIGTERM.

Environment:
    SEA_ADDR          listen address (default ":8081")
    SEA_UNIVERSE      universe YAML file (default: embedded universe)
    SEA_DB            SQLite save database (default "sea-tycoon.db", "off" disables saving)
    SEA_SEED          random seed (default: time based)
    SEA_AUTOSAVE      autosave interval (default "60s", "0" disables)
    SEA_RATE          requests per second per client IP (default 20, 0 disables)
    SEA_LOG_LEVEL     debug, info, warn or error (default info)
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/everforgeworks/sea-tycoon/internal/api"
	"github.com/everforgeworks/sea-tycoon/internal/game"
	"github.com/everforgeworks/sea-tycoon/internal/persistence"
)

type config struct {
	Addr         string
	UniversePath string
	DBPath       string
	Seed         uint64
	Autosave     time.Duration
	RatePerSec   float64
	LogLevel     slog.Level
}

func loadConfig() (config, error) {
	cfg := config{
		Addr:       envOr("SEA_ADDR", ":8081"),
		DBPath:     envOr("SEA_DB", "sea-tycoon.db"),
		Seed:       uint64(time.Now().UnixNano()),
		Autosave:   60 * time.Second,
		RatePerSec: 20,
	}
	cfg.UniversePath = os.Getenv("SEA_UNIVERSE")
	if cfg.DBPath == "off" {
		cfg.DBPath = ""
	}

	var err error
	if v := os.Getenv("SEA_SEED"); v != "" {
		if cfg.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return cfg, fmt.Errorf("SEA_SEED: %w", err)
		}
	}
	if v := os.Getenv("SEA_AUTOSAVE"); v != "" {
		if cfg.Autosave, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("SEA_AUTOSAVE: %w", err)
		}
	}
	if v := os.Getenv("SEA_RATE"); v != "" {
		if cfg.RatePerSec, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("SEA_RATE: %w", err)
		}
	}
	if v := os.Getenv("SEA_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("SEA_LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// newLogger writes human readable lines to a terminal and JSON otherwise.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load the universe (ports, goods, balance)
	universe, err := game.DefaultUniverse()
	if cfg.UniversePath != "" {
		universe, err = game.LoadUniverse(cfg.UniversePath)
	}
	if err != nil {
		return fmt.Errorf("universe: %w", err)
	}
	logger.Info("universe loaded", "ports", len(universe.Ports), "goods", len(universe.Goods), "file", cfg.UniversePath)

	// 2. Open the save store
	var store *persistence.Store
	if cfg.DBPath != "" {
		store, err = persistence.Open(ctx, cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("database opened", "path", cfg.DBPath)
	} else {
		logger.Warn("SEA_DB=off, saving is disabled")
	}

	// 3. Start a game, resuming the autosave when there is one
	engine := game.NewEngine(universe, game.NewRand(cfg.Seed), logger.With("component", "engine"))
	if store != nil {
		raw, err := store.LoadSlot(ctx, api.AutosaveSlot)
		switch {
		case err == nil:
			if err := engine.Load(raw); err != nil {
				logger.Warn("autosave is unreadable, starting a new game", "err", err)
			} else {
				logger.Info("resumed autosave", "game_id", engine.State().GameID, "turn", engine.State().Turn)
			}
		case errors.Is(err, persistence.ErrSlotNotFound):
			logger.Info("no autosave found, starting a new game")
		default:
			return fmt.Errorf("read autosave: %w", err)
		}
	}
	engine.Drain()

	// 4. Initialize and start the Real-Time WebSocket Hub
	hub := api.NewHub(logger.With("component", "hub"))
	go hub.Run(ctx)

	srv := api.NewServer(engine, store, hub, logger.With("component", "api"), api.Options{
		RequestsPerSecond: cfg.RatePerSec,
		Burst:             int(max(1, cfg.RatePerSec*2)),
	})

	// 5. Autosave heartbeat; SIGHUP forces one immediately
	if store != nil && cfg.Autosave > 0 {
		go autosaveLoop(ctx, srv, cfg.Autosave, logger)
	}

	// 6. Serve until signalled
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Sea Tycoon server live", "addr", cfg.Addr, "seed", cfg.Seed)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if store != nil {
		if _, err := srv.Autosave(shutdownCtx); err != nil {
			logger.Error("final save failed", "err", err)
		}
	}
	return nil
}

func autosaveLoop(ctx context.Context, srv *api.Server, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-hup:
			logger.Info("SIGHUP: saving now")
		}
		saved, err := srv.Autosave(ctx)
		if err != nil {
			logger.Error("autosave failed", "err", err)
			continue
		}
		if saved {
			logger.Debug("autosaved", "slot", api.AutosaveSlot)
		}
	}
}
