package resolver

import (
	"errors"
	"fmt"
)

// ErrFormatterNotFound reports that no override is configured and the formatter is not on PATH.
var ErrFormatterNotFound = errors.New("cabal-fmt executable not found on PATH")

// ConfigurationError reports an override path that does not name an invocable command.
type ConfigurationError struct {
	Path  string
	Cause error
}

// Error returns the error string.
func (configurationError *ConfigurationError) Error() string {
	return fmt.Sprintf("path to cabal-fmt is set to an unknown place: %s", configurationError.Path)
}

// Unwrap exposes the lookup failure.
func (configurationError *ConfigurationError) Unwrap() error {
	return configurationError.Cause
}
