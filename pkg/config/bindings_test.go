package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBindings(t *testing.T) {
	cfg := &Config{
		Bindings: []map[string]any{
			{"command": "attack", "target": "player", "signature": "Attack(int)"},
			{"command": "attack", "target": "player", "signature": "Attack(int,float64)"},
			{"command": "teleport", "target": "player", "signature": "Teleport(float64,float64,float64)"},
		},
	}

	bindings, err := DecodeBindings(cfg)
	require.NoError(t, err)
	require.Len(t, bindings, 3)

	assert.Equal(t, "attack", bindings[0].Command)
	assert.Equal(t, "player", bindings[0].Target)
	assert.Equal(t, "Attack(int)", bindings[0].Signature)
	assert.Equal(t, "Attack(int,float64)", bindings[1].Signature)
}

func TestDecodeBindings_UnknownKey(t *testing.T) {
	cfg := &Config{
		Bindings: []map[string]any{
			{"command": "attack", "target": "player", "signatur": "Attack(int)"},
		},
	}

	_, err := DecodeBindings(cfg)
	require.Error(t, err, "typo'd key should fail at startup")
}

func TestDecodeBindings_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		entry map[string]any
	}{
		{"missing command", map[string]any{"target": "player", "signature": "X()"}},
		{"missing target", map[string]any{"command": "x", "signature": "X()"}},
		{"missing signature", map[string]any{"command": "x", "target": "player"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Bindings: []map[string]any{tt.entry}}
			_, err := DecodeBindings(cfg)
			assert.Error(t, err)
		})
	}
}

func TestValidate_DuplicateBindings(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Bindings = []map[string]any{
		{"command": "attack", "target": "player", "signature": "Attack(int)"},
		{"command": "attack", "target": "player", "signature": "Attack(int)"},
	}

	require.Error(t, Validate(&cfg))
}
