// Package service holds the reservation engine: the seat and booking
// state machine and its concurrency-control protocol.  All mutual
// exclusion is delegated to the Store's transactional row locking;
// the engine itself carries no mutex and may be called from any number
// of request goroutines concurrently.
package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/event-seat-reservation/internal/model"
	"github.com/iliyamo/event-seat-reservation/internal/repository"
)

const (
	// DefaultGracePeriod is how long a PENDING booking may hold its
	// seats before expiry reclaims them.
	DefaultGracePeriod = 2 * time.Minute
	// DefaultClaimTimeout bounds the claim transaction so a stalled
	// lock holder cannot starve other claimants indefinitely.
	DefaultClaimTimeout = 10 * time.Second
)

// ReservationEngine orchestrates the transactional reservation
// protocol: claim seats, confirm, cancel and expire bookings.
type ReservationEngine struct {
	store     repository.Store
	scheduler ExpiryScheduler

	gracePeriod  time.Duration
	claimTimeout time.Duration
}

// NewReservationEngine constructs an engine.  Zero durations fall back
// to the defaults.  The scheduler may be nil at construction and set
// later with SetScheduler when it needs a reference back to the engine,
// as the in-process timer scheduler does.
func NewReservationEngine(store repository.Store, scheduler ExpiryScheduler, gracePeriod, claimTimeout time.Duration) *ReservationEngine {
	if store == nil {
		panic("nil store passed to NewReservationEngine")
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if claimTimeout <= 0 {
		claimTimeout = DefaultClaimTimeout
	}
	return &ReservationEngine{
		store:        store,
		scheduler:    scheduler,
		gracePeriod:  gracePeriod,
		claimTimeout: claimTimeout,
	}
}

// SetScheduler installs the expiry scheduler.  Must be called before
// the engine starts serving claims.
func (e *ReservationEngine) SetScheduler(s ExpiryScheduler) {
	e.scheduler = s
}

// ClaimSeats creates a PENDING booking holding the requested seats.
// The protocol is lock-then-validate: seat rows are locked first and
// availability is checked only afterwards, otherwise a race between
// "check availability" and "claim" would reintroduce the double-booking
// hazard the locks exist to prevent.  On success an expiry task is
// scheduled best-effort; a scheduling failure is logged and never
// unwinds the committed booking.
func (e *ReservationEngine) ClaimSeats(ctx context.Context, eventID, userID uint64, seatNumbers []uint32) (*model.Booking, error) {
	numbers := normalizeSeatNumbers(seatNumbers)
	if len(numbers) == 0 {
		return nil, invalidInput("seat_numbers must contain at least one positive seat number")
	}
	if _, err := e.store.EventByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	if _, err := e.store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound("user not found")
		}
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, e.claimTimeout)
	defer cancel()

	var booking *model.Booking
	err := e.store.WithinTx(txCtx, func(tx repository.Tx) error {
		seats, err := tx.SeatsForUpdate(txCtx, eventID, numbers)
		if err != nil {
			return err
		}
		if len(seats) != len(numbers) {
			found := make(map[uint32]struct{}, len(seats))
			for _, seat := range seats {
				found[seat.SeatNumber] = struct{}{}
			}
			missing := make([]uint32, 0, len(numbers)-len(seats))
			for _, n := range numbers {
				if _, ok := found[n]; !ok {
					missing = append(missing, n)
				}
			}
			return invalidInput("seats not found", missing...)
		}
		var unavailable []uint32
		for _, seat := range seats {
			if seat.Status != model.SeatAvailable {
				unavailable = append(unavailable, seat.SeatNumber)
			}
		}
		if len(unavailable) > 0 {
			return conflict("seats are not available", unavailable...)
		}
		b := &model.Booking{
			EventID:     eventID,
			UserID:      userID,
			SeatNumbers: numbers,
			Status:      model.BookingPending,
			Version:     0,
		}
		if err := tx.InsertBooking(txCtx, b); err != nil {
			return err
		}
		holder := b.ID
		if err := tx.UpdateSeats(txCtx, eventID, numbers, model.SeatHeld, &holder); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.scheduler != nil {
		if err := e.scheduler.ScheduleExpiry(ctx, booking.ID, e.gracePeriod); err != nil {
			log.Printf("reservation: schedule expiry for booking %d failed: %v", booking.ID, err)
		}
	}
	return booking, nil
}

// ConfirmBooking finalises a PENDING booking: its seats advance to
// BOOKED with the holder reference cleared, and the booking itself is
// updated under an optimistic version check.  A version mismatch is a
// retryable conflict, distinct from the state error raised for a
// non-PENDING booking.
func (e *ReservationEngine) ConfirmBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var booking *model.Booking
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return notFound("booking not found")
			}
			return err
		}
		if b.Status != model.BookingPending {
			return invalidInput("cannot confirm booking with status " + string(b.Status))
		}
		if err := tx.UpdateSeats(ctx, b.EventID, b.SeatNumbers, model.SeatBooked, nil); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingConfirmed, b.Version); err != nil {
			return err
		}
		b.Status = model.BookingConfirmed
		b.Version++
		booking = b
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, conflict("booking was modified by another request")
		}
		return nil, err
	}
	return booking, nil
}

// CancelBooking releases a booking's seats back to AVAILABLE and marks
// the booking FAILED.  Cancelling a CONFIRMED booking is permitted as a
// deliberate policy choice but logged at warning level; an already
// FAILED booking is rejected as terminal.  The booking is loaded with a
// plain read rather than a row lock: the narrow confirm/cancel race is
// caught by the versioned update instead.
func (e *ReservationEngine) CancelBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	var booking *model.Booking
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return notFound("booking not found")
			}
			return err
		}
		if b.Status == model.BookingFailed {
			return invalidInput("booking is already cancelled or failed")
		}
		if b.Status == model.BookingConfirmed {
			log.Printf("reservation: WARN cancelling confirmed booking %d", b.ID)
		}
		if err := tx.UpdateSeats(ctx, b.EventID, b.SeatNumbers, model.SeatAvailable, nil); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingFailed, b.Version); err != nil {
			return err
		}
		b.Status = model.BookingFailed
		b.Version++
		booking = b
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, conflict("booking was modified by another request")
		}
		return nil, err
	}
	return booking, nil
}

// ExpireBooking is invoked by the expiry scheduler once the grace
// period has passed.  It is idempotent: a missing booking or one that
// already left PENDING is a no-op, so duplicate or late deliveries are
// safe.  A version conflict means another writer settled the booking
// concurrently, which is equally a no-op from the scheduler's point of
// view.
func (e *ReservationEngine) ExpireBooking(ctx context.Context, bookingID uint64) error {
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		b, err := tx.Booking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return nil
			}
			return err
		}
		if b.Status != model.BookingPending {
			return nil
		}
		if err := tx.UpdateSeats(ctx, b.EventID, b.SeatNumbers, model.SeatAvailable, nil); err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, model.BookingFailed, b.Version); err != nil {
			return err
		}
		log.Printf("reservation: expired booking %d", b.ID)
		return nil
	})
	if errors.Is(err, repository.ErrVersionConflict) {
		return nil
	}
	return err
}

// GetBooking returns a booking snapshot.
func (e *ReservationEngine) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	b, err := e.store.BookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, notFound("booking not found")
		}
		return nil, err
	}
	return b, nil
}

// CreateEvent inserts a new event and pre-allocates its seat ledger:
// one AVAILABLE seat per number 1..totalSeats, created in the same
// transaction as the event itself.
func (e *ReservationEngine) CreateEvent(ctx context.Context, title string, startsAt time.Time, totalSeats uint32) (*model.Event, error) {
	if title == "" {
		return nil, invalidInput("title is required")
	}
	if totalSeats == 0 {
		return nil, invalidInput("total_seats must be positive")
	}
	ev := &model.Event{Title: title, StartsAt: startsAt.UTC(), TotalSeats: totalSeats}
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.InsertEvent(ctx, ev); err != nil {
			return err
		}
		seats := make([]model.Seat, 0, totalSeats)
		for n := uint32(1); n <= totalSeats; n++ {
			seats = append(seats, model.Seat{
				EventID:    ev.ID,
				SeatNumber: n,
				Status:     model.SeatAvailable,
			})
		}
		return tx.InsertSeats(ctx, seats)
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvents returns all events.
func (e *ReservationEngine) ListEvents(ctx context.Context) ([]model.Event, error) {
	return e.store.ListEvents(ctx)
}

// SeatsForEvent returns the seat ledger of one event.  The event must
// exist.
func (e *ReservationEngine) SeatsForEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	if _, err := e.store.EventByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, notFound("event not found")
		}
		return nil, err
	}
	return e.store.SeatsByEvent(ctx, eventID)
}

// normalizeSeatNumbers drops zero values, deduplicates and sorts the
// requested numbers.  Sorting gives every claim the same lock
// acquisition order, which keeps overlapping claims deadlock-free.
func normalizeSeatNumbers(in []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(in))
	out := make([]uint32, 0, len(in))
	for _, n := range in {
		if n == 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
