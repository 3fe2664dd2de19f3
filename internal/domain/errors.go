package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput marks a forecast, observation, or count file that does not
	// exist for a date. Callers skip the date; it is never zero-filled.
	ErrMissingInput = errors.New("missing input")

	// ErrEmptySample is returned when a statistic is requested over zero entries.
	ErrEmptySample = errors.New("empty verification sample")

	// ErrDegenerateFit is returned when the binormal regression has fewer than
	// two finite points or no spread in the false-alarm z-scores.
	ErrDegenerateFit = errors.New("degenerate binormal fit")

	// ErrInvalidRecord is returned for records that break the pairing or range invariants.
	ErrInvalidRecord = errors.New("invalid exceedance record")
)

// ConfigError reports a malformed or inconsistent setting. It is fatal.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Setting, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(setting, format string, args ...any) error {
	return &ConfigError{Setting: setting, Err: fmt.Errorf(format, args...)}
}
