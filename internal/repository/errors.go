// Package repository defines the storage contract used by the
// reservation engine together with its MySQL implementation.  The
// sentinel errors below are shared by every Store implementation so
// that higher layers can distinguish failure scenarios without knowing
// which backend produced them.
package repository

import "errors"

// ErrEventNotFound is returned when an event lookup yields no row.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when a booking lookup yields no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when a user lookup yields no row.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when registering a user whose email is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrVersionConflict is returned when a versioned booking update
// matches no row because a concurrent writer already advanced the
// version.  Callers should surface this as a retryable conflict.
var ErrVersionConflict = errors.New("booking version conflict")
