// Package errs provides the single tagged error type the core returns
// to every caller (spec.md §6, "Error surface to callers" / §7). Every
// error the storage engine produces carries a Kind so callers can
// branch on category with this package's Is (a Kind is not an error
// value, so errors.Is cannot match one), while still being able to reach
// the underlying cause with errors.Unwrap / errors.As.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the error taxonomy from spec.md §7.
type Kind int

const (
	// Configuration covers invalid backend/compressor names, invalid
	// paths, and empty required fields. Fatal at startup.
	Configuration Kind = iota
	// Initialization covers directory/database-open failures and
	// metadata gate failures. Fatal at startup.
	Initialization
	// NotFound means a chunk was missing for a read.
	NotFound
	// Corruption means a decode, decompress, or schema-hash failure on
	// one record. Never poisons the database, only the key.
	Corruption
	// BackendIO covers read/write/commit/flush/close failures from the
	// underlying engine.
	BackendIO
	// Contention means the backend reported a conflict. No backend in
	// this module returns it, and internal/world does not retry on it.
	Contention
	// Cancelled means the operation was abandoned before completion.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Initialization:
		return "initialization"
	case NotFound:
		return "not_found"
	case Corruption:
		return "corruption"
	case BackendIO:
		return "backend_io"
	case Contention:
		return "contention"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the tagged error every public operation in this module
// returns. Build one with New or Wrap; test for a kind with Is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a tagged Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a tagged Error around an underlying cause. If cause is
// already a *Error, its Kind is preserved unless kind differs, in
// which case the outer kind wins (callers re-tagging a lower-level
// error into their own taxonomy).
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a tagged Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
