package model

import "time"

// Event represents a scheduled event for which seats can be reserved.
// Events are immutable after creation: the title, start time and seat
// count never change, and TotalSeats fixes the size of the event's seat
// ledger (seats are numbered 1..TotalSeats).
type Event struct {
	ID         uint64    `json:"id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	TotalSeats uint32    `json:"total_seats"`
	CreatedAt  time.Time `json:"created_at"`
}
