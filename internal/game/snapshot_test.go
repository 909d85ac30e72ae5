package game

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Buy("silk", 4))
	require.NoError(t, e.Borrow(600))
	require.NoError(t, e.PayProtection()) // 510 on turn 1
	require.NoError(t, e.SailTo("shanghai"))
	want := e.State()

	data, err := e.Save(nil)
	require.NoError(t, err)

	other, _ := newTestEngine(t)
	require.NoError(t, other.Load(data))

	got := other.State()
	assert.Equal(t, want.GameID, got.GameID)
	assert.Equal(t, want.Turn, got.Turn)
	assert.Equal(t, want.Port, got.Port)
	assert.Equal(t, want.Cash, got.Cash)
	assert.Equal(t, want.Debt, got.Debt)
	assert.Equal(t, want.Cargo, got.Cargo)
	assert.Equal(t, want.ShipHP, got.ShipHP)
	assert.Equal(t, want.Protection, got.Protection)
	assert.Equal(t, want.ProtectionTimer, got.ProtectionTimer)
	// Prices are recomputed on load; with the scripted rand they match.
	assert.Equal(t, want.PriceMap, got.PriceMap)

	events := other.Drain()
	require.NotEmpty(t, events)
	assert.Equal(t, "Game loaded.", events[len(events)-1].Message)
}

func TestDecodeSave_MergesDefaults(t *testing.T) {
	u := mustUniverse(t)

	s, err := DecodeSave(u, []byte(`{"port":"manila","cargo":{"tea":5},"cash":42}`))
	require.NoError(t, err)

	assert.Equal(t, "manila", s.Port)
	assert.Equal(t, 42, s.Cash)
	assert.Equal(t, 5, s.Cargo["tea"])
	assert.Zero(t, s.Cargo["opium"])
	assert.Len(t, s.Cargo, len(u.Goods))
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, 100, s.ShipHP)
	assert.Equal(t, 5, s.Guns)
	assert.Equal(t, 100, s.HoldCapacity)
}

func TestDecodeSave_Normalizes(t *testing.T) {
	u := mustUniverse(t)

	s, err := DecodeSave(u, []byte(`{
	  "port": "saigon",
	  "cargo": {"tea": 1, "jade": 7},
	  "scarcity": {"jade": {"type": "glut", "turns": 2}},
	  "ship_hp": 250,
	  "protection": true,
	  "protection_timer": 0
	}`))
	require.NoError(t, err)

	assert.NotContains(t, s.Cargo, "jade")
	assert.NotContains(t, s.Scarcity, "jade")
	assert.Equal(t, 100, s.ShipHP)
	assert.False(t, s.Protection)
}

func TestDecodeSave_Rejects(t *testing.T) {
	u := mustUniverse(t)

	cases := map[string]string{
		"not json":      `{"port":`,
		"not an object": `[1,2,3]`,
		"missing port":  `{"cargo":{}}`,
		"missing cargo": `{"port":"hong_kong"}`,
		"empty port":    `{"port":"","cargo":{}}`,
		"unknown port":  `{"port":"atlantis","cargo":{}}`,
		"negative cash": `{"port":"hong_kong","cargo":{},"cash":-5}`,
		"fractional":    `{"port":"hong_kong","cargo":{"tea":1.5}}`,
		"bad event":     `{"port":"hong_kong","cargo":{},"scarcity":{"tea":{"type":"plague"}}}`,
		"over hold":     `{"port":"hong_kong","cargo":{"rice":101}}`,
		"huge cargo":    `{"port":"hong_kong","cargo":{"silk":4611686018427387904}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSave(u, []byte(doc))
			assert.ErrorIs(t, err, ErrInvalidSaveData)
		})
	}
}

func TestDecodeSave_KeepsLargeIntegersExact(t *testing.T) {
	u := mustUniverse(t)

	// 2^53+1 does not survive a round trip through float64.
	s, err := DecodeSave(u, []byte(`{"port":"hong_kong","cargo":{},"bank":9007199254740993}`))
	require.NoError(t, err)

	assert.Equal(t, 9007199254740993, s.Bank)
}

func TestSave_PersistsEncodedDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Drain()

	var stored []byte
	data, err := e.Save(func(b []byte) error {
		stored = b
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, data, stored)
	_, err = DecodeSave(e.u, stored)
	require.NoError(t, err)
	events := e.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "Game saved.", events[0].Message)
}

func TestSave_PersistFailure(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Drain()
	diskFull := errors.New("disk full")

	data, err := e.Save(func([]byte) error { return diskFull })

	assert.ErrorIs(t, err, diskFull)
	assert.Nil(t, data)
	events := e.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "Failed to save game.", events[0].Message)
	assert.Equal(t, SeverityBad, events[0].Severity)
}

func TestLoad_FailureKeepsGame(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Buy("tea", 3))
	before := e.State()
	e.Drain()

	err := e.Load([]byte(`{"cargo":{}}`))

	assert.ErrorIs(t, err, ErrInvalidSaveData)
	assert.Equal(t, before, e.State())
	events := e.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "Failed to load save.", events[0].Message)
	assert.Equal(t, SeverityBad, events[0].Severity)
}

func TestLoad_AssignsMissingGameID(t *testing.T) {
	e, _ := newTestEngine(t)
	old := e.State().GameID

	require.NoError(t, e.Load([]byte(`{"port":"nagasaki","cargo":{}}`)))

	s := e.State()
	assert.NotEmpty(t, s.GameID)
	assert.NotEqual(t, old, s.GameID)
	assert.Equal(t, 1070, s.PriceMap["opium"])
}

func TestEncodeSave_FieldNames(t *testing.T) {
	e, _ := newTestEngine(t)

	data, err := EncodeSave(e.s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"turn", "port", "cash", "bank", "debt", "protection",
		"protection_timer", "ship_hp", "ship_max_hp", "guns", "hold_capacity",
		"cargo", "price_map", "scarcity", "game_over", "retired"} {
		assert.Contains(t, doc, key)
	}
	assert.NotContains(t, doc, "game_over_reason")
}
