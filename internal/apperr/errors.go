// Package apperr defines the application-level error taxonomy shared by the
// ingestion, index, and chat components. Every internal failure is wrapped
// into an *Error carrying the originating operation, the session it belongs
// to, and the original cause, then re-raised to the caller.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for missing API keys, unknown providers,
	// or an absent index with no seed data.
	ErrConfiguration = errors.New("configuration error")
	// ErrState is returned when an operation is invoked before its
	// prerequisite (e.g. AddDocuments before LoadOrCreate).
	ErrState = errors.New("invalid state")
	// ErrValidation is returned when a value fails shape constraints.
	ErrValidation = errors.New("validation failed")
	// ErrIO is returned for file save/load failures.
	ErrIO = errors.New("io failure")
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// Error is the single application-level error wrapper. Kind is one of the
// sentinel errors above; Err is the original cause (may be nil when the
// failure originates here).
type Error struct {
	Op        string
	SessionID string
	Kind      error
	Err       error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.SessionID != "" {
		msg += fmt.Sprintf(" (session=%s)", e.SessionID)
	}
	return msg
}

// Unwrap exposes the original cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches both the taxonomy sentinel and the wrapped cause.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// E builds an *Error without a session id.
func E(op string, kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// ES builds an *Error scoped to a session.
func ES(op, sessionID string, kind, cause error) *Error {
	return &Error{Op: op, SessionID: sessionID, Kind: kind, Err: cause}
}

// Msg builds an *Error whose cause is a plain message.
func Msg(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}
