// Package dberrors defines the sentinel errors surfaced by the storage core.
// Every error a command engine returns to a caller is one of these (or wraps
// one with fmt.Errorf's %w), never a raw panic or process abort.
package dberrors

import "errors"

var (
	// ErrWrongType is returned when a command targets a key whose stored
	// type tag does not match the command's expected type.
	ErrWrongType = errors.New("wrong-type")

	// ErrNotInteger is returned when a value that must parse as a signed
	// 64-bit integer does not.
	ErrNotInteger = errors.New("not-integer")

	// ErrInvalidFloat is returned when a value that must parse as a
	// float64 does not.
	ErrInvalidFloat = errors.New("invalid-float")

	// ErrDecrementOverflow is returned when a decrement would underflow a
	// signed 64-bit counter (or an increment would overflow one).
	ErrDecrementOverflow = errors.New("decrement-overflow")

	// ErrInvalidArguments is returned when a command's argument count or
	// shape does not match what the command expects.
	ErrInvalidArguments = errors.New("invalid-arguments")

	// ErrVersionExhausted is returned when a key has cycled through the
	// full 16-bit version space without any version being reclaimed by
	// the garbage collector. Transient: resolves once GC drains.
	ErrVersionExhausted = errors.New("version-exhausted")

	// ErrTxnConflict is returned when a transaction could not commit
	// because of a conflicting concurrent writer. Retryable.
	ErrTxnConflict = errors.New("txn-conflict")

	// ErrBackendFailure covers any non-conflict failure from the
	// underlying store (I/O error, closed database, etc).
	ErrBackendFailure = errors.New("backend-failure")

	// ErrIndexOutOfRange is returned when a list index falls outside the
	// key's current [left, right) bounds.
	ErrIndexOutOfRange = errors.New("index-out-of-range")

	// ErrListTooLarge is returned when LREM/LINSERT would scan more
	// elements than the configured cap allows.
	ErrListTooLarge = errors.New("list-too-large")

	// ErrUnknownCommand is returned for a command name the engine does
	// not recognize.
	ErrUnknownCommand = errors.New("unknown command")
)
