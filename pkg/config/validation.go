package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// go-playground/validator handles the declarative checks; additional rules
// that cannot be expressed in tags run afterwards.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Server.MaxCommandLength > cfg.Server.BufferSize*64 {
		return fmt.Errorf("server: max_command_length %d is unreasonably large for buffer_size %d",
			cfg.Server.MaxCommandLength, cfg.Server.BufferSize)
	}

	if cfg.Server.CleanupInterval > cfg.Server.IdleTimeout {
		return fmt.Errorf("server: cleanup_interval %v exceeds idle_timeout %v; idle connections would linger",
			cfg.Server.CleanupInterval, cfg.Server.IdleTimeout)
	}

	// Binding entries are decoded lazily, but malformed ones should fail
	// at startup rather than first use.
	bindings, err := DecodeBindings(cfg)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i, b := range bindings {
		key := b.Command + "|" + b.Signature
		if seen[key] {
			return fmt.Errorf("bindings[%d]: duplicate binding %q -> %q", i, b.Command, b.Signature)
		}
		seen[key] = true
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
