package repository

import (
	"context"

	"github.com/iliyamo/event-seat-reservation/internal/model"
)

// Store is the persistence port of the reservation engine.  The
// contract every implementation must honour: WithinTx runs fn inside a
// single transaction whose writes become visible atomically on commit
// and are discarded entirely when fn returns an error, and
// Tx.SeatsForUpdate must acquire exclusive locks on the matched seat
// rows that block overlapping claimants until the transaction ends.
// That row locking is the sole mechanism preventing double-booking; no
// in-process mutex coordinates callers.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	EventByID(ctx context.Context, id uint64) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	SeatsByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error)
	BookingByID(ctx context.Context, id uint64) (*model.Booking, error)
	UserByID(ctx context.Context, id uint64) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateUser persists a new user and populates its ID.  Returns
	// ErrEmailExists when the email is already registered.
	CreateUser(ctx context.Context, u *model.User) error
}

// Tx is the transactional view handed to the WithinTx closure.  All
// methods operate within the enclosing transaction.
type Tx interface {
	// SeatsForUpdate fetches the seats matching the given numbers under
	// exclusive row locks, ordered by seat number.  Numbers with no
	// matching row are simply absent from the result.
	SeatsForUpdate(ctx context.Context, eventID uint64, seatNumbers []uint32) ([]model.Seat, error)

	// UpdateSeats sets status and holder reference on every seat of the
	// event matching seatNumbers.  A nil heldBy clears the reference.
	UpdateSeats(ctx context.Context, eventID uint64, seatNumbers []uint32, status model.SeatStatus, heldBy *uint64) error

	// InsertBooking persists a new booking and populates its ID and
	// timestamps.
	InsertBooking(ctx context.Context, b *model.Booking) error

	// Booking loads a booking without any lock beyond normal row
	// isolation.  Returns ErrBookingNotFound when absent.
	Booking(ctx context.Context, id uint64) (*model.Booking, error)

	// BookingForUpdate loads a booking under an exclusive row lock.
	// Returns ErrBookingNotFound when absent.
	BookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error)

	// UpdateBookingStatus advances a booking to status, incrementing
	// its version, conditioned on the stored version still equalling
	// expectedVersion.  Returns ErrVersionConflict when no row matched.
	UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus, expectedVersion uint32) error

	// InsertEvent persists a new event and populates its ID and
	// creation timestamp.
	InsertEvent(ctx context.Context, ev *model.Event) error

	// InsertSeats bulk-creates seat rows.  Passing an empty slice has
	// no effect and returns nil.
	InsertSeats(ctx context.Context, seats []model.Seat) error
}
