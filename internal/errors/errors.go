// Package errors defines the closed set of error kinds the service exposes.
// Every failure a use case returns wraps exactly one of these sentinels, so
// transports (HTTP handlers, CLI commands) map errors to responses with
// errors.Is instead of string matching.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap one of these rather than inventing new roots.
var (
	// ErrNotFound marks a lookup for a row or resource that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that lost to an existing row, such as a
	// duplicate workspace key insert.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput marks input that failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig marks missing or malformed configuration, typically key
	// material. Fatal to startup: no encryption-dependent operation may run
	// while the process configuration is partially valid.
	ErrConfig = errors.New("configuration error")

	// ErrDecryption marks an authentication-tag mismatch, a malformed token,
	// or a key-unwrap failure. Always surfaced to the caller, never masked as
	// empty or default data.
	ErrDecryption = errors.New("decryption error")

	// ErrStore marks an underlying persistence failure. Propagated to the
	// caller; retries are the caller's decision, never performed internally.
	ErrStore = errors.New("store error")
)

// New mirrors errors.New so callers inside the module never need to import
// both packages under aliases.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with context while keeping the kind reachable through
// the chain.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is mirrors errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As mirrors errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
