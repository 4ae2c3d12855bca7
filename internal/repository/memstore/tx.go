package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-seat-reservation/internal/model"
	"github.com/iliyamo/event-seat-reservation/internal/repository"
)

// memTx is the transactional view.  Row locks are acquired as the
// closure touches rows and held until the transaction ends; mutations
// are staged in apply closures executed under the store mutex on
// commit.
type memTx struct {
	s *Store

	heldEvents   map[uint64]bool
	heldBookings map[uint64]bool
	locks        []*sync.Mutex

	staged []func()
	// version expectations re-checked at commit time
	versionChecks []versionCheck
}

type versionCheck struct {
	bookingID uint64
	expected  uint32
}

// lockEvent blocks until this transaction holds the event's row lock.
// Overlapping seat claims serialize here, mirroring InnoDB behaviour.
func (t *memTx) lockEvent(id uint64) {
	if t.heldEvents == nil {
		t.heldEvents = make(map[uint64]bool)
	}
	if t.heldEvents[id] {
		return
	}
	l := lockFor(&t.s.mu, t.s.eventLocks, id)
	l.Lock()
	t.heldEvents[id] = true
	t.locks = append(t.locks, l)
}

func (t *memTx) lockBooking(id uint64) {
	if t.heldBookings == nil {
		t.heldBookings = make(map[uint64]bool)
	}
	if t.heldBookings[id] {
		return
	}
	l := lockFor(&t.s.mu, t.s.bookingLocks, id)
	l.Lock()
	t.heldBookings[id] = true
	t.locks = append(t.locks, l)
}

func (t *memTx) releaseLocks() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

// commit re-validates version expectations and applies staged writes
// atomically.
func (t *memTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, vc := range t.versionChecks {
		b, ok := t.s.bookings[vc.bookingID]
		if !ok || b.Version != vc.expected {
			return repository.ErrVersionConflict
		}
	}
	for _, apply := range t.staged {
		apply()
	}
	return nil
}

// SeatsForUpdate takes the event row lock, then returns copies of the
// matching seats ordered by seat number.  Numbers without a row are
// absent from the result.
func (t *memTx) SeatsForUpdate(ctx context.Context, eventID uint64, seatNumbers []uint32) ([]model.Seat, error) {
	t.lockEvent(eventID)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ledger := t.s.seats[eventID]
	seats := make([]model.Seat, 0, len(seatNumbers))
	for _, n := range seatNumbers {
		if seat, ok := ledger[n]; ok {
			seats = append(seats, copySeat(seat))
		}
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
	return seats, nil
}

// UpdateSeats stages a bulk status/holder update.  The event lock is
// taken first, matching the exclusive locks an UPDATE would acquire.
func (t *memTx) UpdateSeats(ctx context.Context, eventID uint64, seatNumbers []uint32, status model.SeatStatus, heldBy *uint64) error {
	t.lockEvent(eventID)
	numbers := append([]uint32(nil), seatNumbers...)
	var holder *uint64
	if heldBy != nil {
		id := *heldBy
		holder = &id
	}
	t.staged = append(t.staged, func() {
		ledger := t.s.seats[eventID]
		for _, n := range numbers {
			seat, ok := ledger[n]
			if !ok {
				continue
			}
			seat.Status = status
			if holder != nil {
				id := *holder
				seat.HeldByBookingID = &id
			} else {
				seat.HeldByBookingID = nil
			}
			ledger[n] = seat
		}
	})
	return nil
}

// InsertBooking reserves an ID immediately (the caller needs it for the
// seat holder reference) and stages the row write.
func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	t.s.mu.Lock()
	t.s.nextBookingID++
	b.ID = t.s.nextBookingID
	t.s.mu.Unlock()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	row := *b
	row.SeatNumbers = append([]uint32(nil), b.SeatNumbers...)
	t.staged = append(t.staged, func() {
		t.s.bookings[row.ID] = row
	})
	return nil
}

// Booking loads a booking with no lock.
func (t *memTx) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.bookingLocked(id)
}

// BookingForUpdate takes the booking row lock before the read, so
// concurrent confirmations of the same booking serialize.
func (t *memTx) BookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	t.lockBooking(id)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.bookingLocked(id)
}

// UpdateBookingStatus checks the version eagerly and stages the status
// write; commit re-checks so a writer that sneaks in between still
// surfaces as ErrVersionConflict.
func (t *memTx) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus, expectedVersion uint32) error {
	t.s.mu.Lock()
	b, ok := t.s.bookings[id]
	t.s.mu.Unlock()
	if !ok || b.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	t.versionChecks = append(t.versionChecks, versionCheck{bookingID: id, expected: expectedVersion})
	t.staged = append(t.staged, func() {
		b := t.s.bookings[id]
		b.Status = status
		b.Version++
		b.UpdatedAt = time.Now().UTC()
		t.s.bookings[id] = b
	})
	return nil
}

// InsertEvent reserves an ID and stages the event row.
func (t *memTx) InsertEvent(ctx context.Context, ev *model.Event) error {
	t.s.mu.Lock()
	t.s.nextEventID++
	ev.ID = t.s.nextEventID
	t.s.mu.Unlock()
	ev.CreatedAt = time.Now().UTC()
	row := *ev
	t.staged = append(t.staged, func() {
		t.s.events[row.ID] = row
		if _, ok := t.s.seats[row.ID]; !ok {
			t.s.seats[row.ID] = make(map[uint32]model.Seat)
		}
	})
	return nil
}

// InsertSeats stages the bulk seat creation.
func (t *memTx) InsertSeats(ctx context.Context, seats []model.Seat) error {
	rows := make([]model.Seat, len(seats))
	copy(rows, seats)
	t.staged = append(t.staged, func() {
		for _, seat := range rows {
			ledger, ok := t.s.seats[seat.EventID]
			if !ok {
				ledger = make(map[uint32]model.Seat)
				t.s.seats[seat.EventID] = ledger
			}
			ledger[seat.SeatNumber] = seat
		}
	})
	return nil
}
