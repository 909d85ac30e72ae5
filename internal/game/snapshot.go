/*
Package game
File: snapshot.go
Description:
    Save and load of a whole game as one flat JSON document.

    Loading validates the document against 'save.schema.json', merges it
    onto a freshly initialized state (missing fields keep their defaults)
    and then checks it against the universe. Any problem is reported as
    ErrInvalidSaveData; the running game is left untouched.
*/

package game

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed save.schema.json
var saveSchemaJSON string

var (
	saveSchemaOnce sync.Once
	saveSchema     *jsonschema.Schema
	saveSchemaErr  error
)

func compiledSaveSchema() (*jsonschema.Schema, error) {
	saveSchemaOnce.Do(func() {
		saveSchema, saveSchemaErr = jsonschema.CompileString("save.schema.json", saveSchemaJSON)
	})
	return saveSchema, saveSchemaErr
}

// EncodeSave serializes a state snapshot.
func EncodeSave(s *GameState) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSave parses and validates a snapshot produced by EncodeSave.
func DecodeSave(u *Universe, data []byte) (*GameState, error) {
	schema, err := compiledSaveSchema()
	if err != nil {
		return nil, fmt.Errorf("compile save schema: %w", err)
	}

	// UseNumber keeps integers exact so the schema can reject 1.5 as a count.
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}

	// Merge onto defaults.
	s := NewState(u)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSaveData, err)
	}

	if u.GetPort(s.Port) == nil {
		return nil, fmt.Errorf("%w: unknown port %q", ErrInvalidSaveData, s.Port)
	}
	for key := range s.Cargo {
		if u.GetGood(key) == nil {
			delete(s.Cargo, key)
		}
	}
	for key := range s.Scarcity {
		if u.GetGood(key) == nil {
			delete(s.Scarcity, key)
		}
	}
	if s.ShipHP > s.ShipMaxHP {
		s.ShipHP = s.ShipMaxHP
	}
	s.Protection = s.ProtectionTimer > 0

	used := 0
	for _, g := range u.Goods {
		qty := s.Cargo[g.Key]
		if qty > (s.HoldCapacity-used)/g.Volume {
			return nil, fmt.Errorf("%w: %d %s exceeds hold %d", ErrInvalidSaveData, qty, g.Key, s.HoldCapacity)
		}
		used += qty * g.Volume
	}
	return s, nil
}

// Save encodes the current game once and hands the document to persist,
// if given. The game is only reported saved when persist succeeds.
func (e *Engine) Save(persist func(data []byte) error) ([]byte, error) {
	data, err := EncodeSave(e.s)
	if err != nil {
		return nil, e.reject(err, "Failed to save game.")
	}
	if persist != nil {
		if err := persist(data); err != nil {
			return nil, e.reject(err, "Failed to save game.")
		}
	}
	e.notify(SeverityOK, "Game saved.")
	return data, nil
}

// Load replaces the current game with a snapshot and reprices the market.
// On failure the current game continues unchanged.
func (e *Engine) Load(data []byte) error {
	s, err := DecodeSave(e.u, data)
	if err != nil {
		return e.reject(err, "Failed to load save.")
	}
	if s.GameID == "" {
		s.GameID = uuid.NewString()
	}
	e.s = s
	e.RecomputePrices()
	e.notify(SeverityOK, "Game loaded.")
	e.logger.Debug("game loaded", "game_id", e.s.GameID, "turn", e.s.Turn, "port", e.s.Port)
	return nil
}
