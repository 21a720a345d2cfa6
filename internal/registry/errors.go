package registry

import "errors"

// Registry invariant violations. These indicate a logic error in the caller,
// not a site-interaction failure, and must never be silently swallowed.
var (
	// ErrUnknownKey is returned when a mark or update targets a remote key
	// that was never resolved.
	ErrUnknownKey = errors.New("registry: unknown remote key")

	// ErrAlreadyTerminal is returned when a record that already reached a
	// terminal status receives a second terminal transition.
	ErrAlreadyTerminal = errors.New("registry: record already terminal")
)
