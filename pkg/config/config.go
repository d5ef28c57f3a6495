// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// LoadOption tweaks how Load treats the file and the decoded target.
type LoadOption func(*loadOptions)

type loadOptions struct {
	optional       bool
	skipValidation bool
}

// Optional makes a missing file a no-op that leaves target untouched.
func Optional() LoadOption {
	return func(o *loadOptions) {
		o.optional = true
	}
}

// SkipValidation leaves the Validator hook to the caller, for targets that
// are only complete after further overlays.
func SkipValidation() LoadOption {
	return func(o *loadOptions) {
		o.skipValidation = true
	}
}

// Load loads configuration from a YAML file with environment variable expansion.
// It reports whether the file was read.
func Load[T any](filename string, target *T, opts ...LoadOption) (bool, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(filename)
	if o.optional && errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return true, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if o.skipValidation {
		return true, nil
	}
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return true, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return true, nil
}
