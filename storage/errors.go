package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is; storages attach
// context by wrapping.
var (
	// ErrOutOfSpace is returned when a create/update would exceed a bounded capacity.
	ErrOutOfSpace = errors.New("storage: out of space")
	// ErrKeyNotFound is returned when an operation requires a key that is absent.
	ErrKeyNotFound = errors.New("storage: key not found")
	// ErrNoKeyGenerated is returned when the key generator exhausted its retries.
	ErrNoKeyGenerated = errors.New("storage: no key generated")
	// ErrMissingKeyGenerator is returned by Create when no generator is configured.
	ErrMissingKeyGenerator = errors.New("storage: missing key generator")
	// ErrInvalidConfiguration is returned when a construction-time invariant is violated.
	ErrInvalidConfiguration = errors.New("storage: invalid configuration")
	// ErrNotAvailableStorage is returned when a composite storage has no members.
	ErrNotAvailableStorage = errors.New("storage: no storage available")
	// ErrOutOfRange is returned by a sequential generator past its ceiling.
	ErrOutOfRange = errors.New("storage: key out of range")
)

// KeyError records the operation and key that caused an error.
type KeyError struct {
	Op  string
	Key any
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

func keyNotFound(op string, k any) error {
	return &KeyError{Op: op, Key: k, Err: ErrKeyNotFound}
}
