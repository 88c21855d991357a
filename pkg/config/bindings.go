package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// BindingConfig is one authored command binding: a command name tied to a
// target object and one specific method signature.
//
// Example YAML:
//
//	bindings:
//	  - command: attack
//	    target: player
//	    signature: "Attack(int)"
type BindingConfig struct {
	// Command is the case-insensitive command name clients send
	Command string `mapstructure:"command"`

	// Target identifies the bound object registered with the invoker
	Target string `mapstructure:"target"`

	// Signature is the exact method signature to select,
	// e.g. "Attack(int,float64)"
	Signature string `mapstructure:"signature"`
}

// DecodeBindings decodes the raw binding entries into typed BindingConfig
// values. Unknown keys in an entry are an error so typos fail at startup.
func DecodeBindings(cfg *Config) ([]BindingConfig, error) {
	bindings := make([]BindingConfig, 0, len(cfg.Bindings))

	for i, raw := range cfg.Bindings {
		var b BindingConfig
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &b,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}

		if b.Command == "" {
			return nil, fmt.Errorf("bindings[%d]: command cannot be empty", i)
		}
		if b.Target == "" {
			return nil, fmt.Errorf("bindings[%d]: target cannot be empty", i)
		}
		if b.Signature == "" {
			return nil, fmt.Errorf("bindings[%d]: signature cannot be empty", i)
		}

		bindings = append(bindings, b)
	}

	return bindings, nil
}
