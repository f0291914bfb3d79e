package generator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two failure classes callers branch on.
var (
	// ErrConfiguration indicates invalid options or config input; it is
	// fatal and nothing is generated.
	ErrConfiguration = errors.New("zerogen: invalid configuration")
	// ErrConflict indicates a hand-edited file on a generated path; it is
	// recoverable and scoped to a single table.
	ErrConflict = errors.New("zerogen: generated file conflict")
)

// ConfigurationError reports an invalid option before any generation runs.
type ConfigurationError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("zerogen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("zerogen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the configuration sentinel.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(option string, value any, message string) *ConfigurationError {
	return &ConfigurationError{Option: option, Value: value, Message: message}
}

// IsConfigurationError reports whether err is a configuration failure.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// ConflictError reports a file on a generated path that lost its banner,
// meaning a human edited it. The owning table is rolled back untouched;
// other tables keep generating.
type ConflictError struct {
	Table string
	Path  string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("zerogen: %s was modified by hand; re-run with --force to overwrite", e.Path)
	}
	return fmt.Sprintf("zerogen: %s was modified by hand (table %s); re-run with --force to overwrite", e.Path, e.Table)
}

// Is reports whether the target matches the conflict sentinel.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError creates a new ConflictError.
func NewConflictError(table, path string) *ConflictError {
	return &ConflictError{Table: table, Path: path}
}

// IsConflictError reports whether err is a per-table conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
