package model

import "time"

// BookingStatus enumerates the states of a reservation attempt.
// PENDING is the only non-terminal state.  The legal forward
// transitions are PENDING->CONFIRMED and PENDING->FAILED; additionally
// a CONFIRMED booking may be moved to FAILED through explicit
// cancellation, which is permitted but logged as an exceptional path.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingFailed    BookingStatus = "FAILED"
)

// Booking records one reservation attempt.  SeatNumbers is fixed at
// creation and never changes for the booking's lifetime.  Version
// starts at 0 and is incremented on every status-changing update; it is
// the basis for optimistic-locking detection of concurrent writers.
type Booking struct {
	ID          uint64        `json:"id"`
	EventID     uint64        `json:"event_id"`
	UserID      uint64        `json:"user_id"`
	SeatNumbers []uint32      `json:"seat_numbers"`
	Status      BookingStatus `json:"status"`
	Version     uint32        `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
