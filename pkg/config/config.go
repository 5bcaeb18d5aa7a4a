// Package config loads YAML configuration with environment variable
// expansion and post-unmarshal validation.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator lets a config type check itself after unmarshalling.
type Validator interface {
	Validate() error
}

// Load reads a YAML file into target, expanding $VAR references first.
// When target implements Validator, validation failures are load failures.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config %s: %w", filename, err)
		}
	}

	return nil
}

// LoadIfPresent loads filename when it exists and leaves target untouched
// when it does not, reporting whether a file was loaded. Callers keep
// their baked-in defaults without requiring a config file on disk; any
// failure other than absence is still an error.
func LoadIfPresent[T any](filename string, target *T) (bool, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := Load(filename, target); err != nil {
		return false, err
	}
	return true, nil
}
