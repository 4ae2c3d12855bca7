package service

import (
	"fmt"
	"strings"
)

// ErrorKind is the closed set of domain failure variants returned by
// the reservation engine.  Callers at the transport boundary match on
// the kind rather than on error strings: not-found maps to 404,
// invalid-input to 400 and conflict to 409.  Anything that is not an
// *Error is an infrastructure failure.
type ErrorKind int

const (
	// KindNotFound: the referenced event, booking or user is absent.
	// Fatal to the operation, not retried.
	KindNotFound ErrorKind = iota + 1
	// KindInvalidInput: malformed seat set, unknown seat numbers or a
	// booking in the wrong state for the requested transition.  The
	// client must correct the request.
	KindInvalidInput
	// KindConflict: seats unavailable or an optimistic version
	// mismatch.  The caller may retry with fresh state.
	KindConflict
)

// Error is a domain failure with an optional list of offending seat
// numbers (unknown or unavailable seats).
type Error struct {
	Kind        ErrorKind
	Message     string
	SeatNumbers []uint32
}

// Error renders the message, appending the seat list when present.
func (e *Error) Error() string {
	if len(e.SeatNumbers) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.SeatNumbers))
	for i, n := range e.SeatNumbers {
		parts[i] = fmt.Sprint(n)
	}
	return e.Message + ": " + strings.Join(parts, ", ")
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func invalidInput(msg string, seats ...uint32) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, SeatNumbers: seats}
}

func conflict(msg string, seats ...uint32) *Error {
	return &Error{Kind: KindConflict, Message: msg, SeatNumbers: seats}
}
