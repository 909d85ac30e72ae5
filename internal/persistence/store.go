// Package persistence keeps save slots and the notification log in SQLite.
// Snapshots are stored zstd-compressed; the same framing is used for
// standalone .json.zst export files.
package persistence

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/everforgeworks/sea-tycoon/internal/game"
)

// ErrSlotNotFound is returned when a named slot has no save.
var ErrSlotNotFound = errors.New("save slot not found")

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Slot describes a stored save without its payload.
type Slot struct {
	Name     string    `db:"slot" json:"slot"`
	GameID   string    `db:"game_id" json:"game_id"`
	Turn     int       `db:"turn" json:"turn"`
	NetWorth int       `db:"net_worth" json:"net_worth"`
	SavedAt  time.Time `db:"-" json:"saved_at"`
	SavedAtS int64     `db:"saved_at" json:"-"`
}

// LoggedEvent is a notification as stored in the event log.
type LoggedEvent struct {
	game.Event
	ID     int64  `db:"id" json:"id"`
	GameID string `db:"game_id" json:"game_id"`
}

// Open opens or creates a SQLite database at the given path.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps pragmas and ":memory:" databases consistent.
	conn.SetMaxOpenConns(1)

	st := &Store{conn: conn}
	if err := st.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	st.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		conn.Close()
		return nil, err
	}
	st.dec, err = zstd.NewReader(nil)
	if err != nil {
		st.enc.Close()
		conn.Close()
		return nil, err
	}
	return st, nil
}

// Close closes the database connection.
func (st *Store) Close() error {
	st.dec.Close()
	st.enc.Close()
	return st.conn.Close()
}

func (st *Store) migrate(ctx context.Context) error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		net_worth INTEGER NOT NULL,
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_game ON events(game_id, id);
	`
	_, err := st.conn.ExecContext(ctx, schema)
	return err
}

// SaveSlot stores a snapshot under slot, replacing any earlier save there.
func (st *Store) SaveSlot(ctx context.Context, slot string, s *game.GameState, netWorth int) error {
	raw, err := game.EncodeSave(s)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	return st.SaveSlotData(ctx, Slot{Name: slot, GameID: s.GameID, Turn: s.Turn, NetWorth: netWorth}, raw)
}

// SaveSlotData stores an already encoded snapshot under meta.Name.
// SavedAt is set to now.
func (st *Store) SaveSlotData(ctx context.Context, meta Slot, raw []byte) error {
	if meta.Name == "" {
		return fmt.Errorf("save: empty slot name")
	}
	_, err := st.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO saves (slot, game_id, turn, net_worth, data, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		meta.Name, meta.GameID, meta.Turn, meta.NetWorth, st.enc.EncodeAll(raw, nil), time.Now().Unix(),
	)
	return err
}

// LoadSlot returns the uncompressed snapshot stored under slot.
// The caller validates it with game.DecodeSave or Engine.Load.
func (st *Store) LoadSlot(ctx context.Context, slot string) ([]byte, error) {
	var blob []byte
	err := st.conn.GetContext(ctx, &blob, "SELECT data FROM saves WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return nil, err
	}
	raw, err := st.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("slot %q: %w", slot, err)
	}
	return raw, nil
}

// ListSlots returns every save, most recent first.
func (st *Store) ListSlots(ctx context.Context) ([]Slot, error) {
	var slots []Slot
	err := st.conn.SelectContext(ctx, &slots,
		"SELECT slot, game_id, turn, net_worth, saved_at FROM saves ORDER BY saved_at DESC, slot")
	if err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].SavedAt = time.Unix(slots[i].SavedAtS, 0).UTC()
	}
	return slots, nil
}

// DeleteSlot removes a save.
func (st *Store) DeleteSlot(ctx context.Context, slot string) error {
	res, err := st.conn.ExecContext(ctx, "DELETE FROM saves WHERE slot = ?", slot)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	return nil
}

// AppendEvents adds notifications to the log of a game.
func (st *Store) AppendEvents(ctx context.Context, gameID string, events []game.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := st.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO events (game_id, turn, severity, message) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, gameID, e.Turn, e.Severity, e.Message); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent events of a game, newest first.
func (st *Store) RecentEvents(ctx context.Context, gameID string, limit int) ([]LoggedEvent, error) {
	var events []LoggedEvent
	err := st.conn.SelectContext(ctx, &events,
		"SELECT id, game_id, turn, severity, message FROM events WHERE game_id = ? ORDER BY id DESC LIMIT ?",
		gameID, limit,
	)
	return events, err
}

// ExportFile writes a snapshot to a standalone zstd-compressed JSON file.
func ExportFile(path string, s *game.GameState) error {
	raw, err := game.EncodeSave(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if _, err := bw.Write(raw); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ImportFile reads a file written by ExportFile and returns the raw snapshot.
func ImportFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := io.ReadAll(bufio.NewReader(dec))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return raw, nil
}
