package model

// SeatStatus enumerates the lifecycle of a single seat.  A seat starts
// AVAILABLE, becomes HELD when a pending booking claims it, and either
// advances to BOOKED on confirmation or returns to AVAILABLE when the
// booking is cancelled or expires.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
)

// Seat is one row of an event's seat ledger, keyed by (EventID,
// SeatNumber).  HeldByBookingID references the booking that claimed the
// seat and is non-nil only while the seat is HELD; it is cleared on
// confirmation or release.
type Seat struct {
	EventID         uint64     `json:"event_id"`
	SeatNumber      uint32     `json:"seat_number"`
	Status          SeatStatus `json:"status"`
	HeldByBookingID *uint64    `json:"held_by_booking_id,omitempty"`
}
