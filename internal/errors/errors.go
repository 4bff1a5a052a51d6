// Package errors holds the sentinel errors shared by the credential and encryption
// domains. Handlers map them to HTTP status codes; domain packages wrap them with context.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: no credential, version or key matches the lookup.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the write collides with stored state, such as a duplicate name.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput: request or generation parameters failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration marks a key set the process must refuse to run with: an
	// unreachable provider, a malformed key reference, or zero or several active keys.
	ErrConfiguration = errors.New("configuration error")
)

// New returns a domain error that maps to no sentinel, so handlers treat it as internal.
func New(message string) error {
	return errors.New(message)
}

// Wrap prefixes err with message, keeping it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is reports whether err or anything it wraps matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
