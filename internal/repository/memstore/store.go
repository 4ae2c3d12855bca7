// Package memstore provides an in-memory implementation of the
// repository Store contract.  Row locking is emulated with one mutex
// per event (seat claims) and one per booking (confirm), held for the
// duration of the transaction closure, so concurrent claims on
// overlapping seats serialize exactly as they would on MySQL row locks.
// Writes are staged and applied atomically on commit, which keeps the
// all-or-nothing transaction property.  The store backs the unit tests
// and can be selected at runtime with STORE_DRIVER=memory.
//
// One divergence from the MySQL store: a transaction blocked on a row
// lock does not observe context cancellation, so a claim past its
// timeout waits for the lock holder anyway (sync.Mutex has no
// interruptible acquire).  MySQL aborts such waits through the query
// context and innodb_lock_wait_timeout.  Lock holds here are bounded by
// the WithinTx closure, so waits stay short.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/event-seat-reservation/internal/model"
	"github.com/iliyamo/event-seat-reservation/internal/repository"
)

// Store holds all tables in maps guarded by mu.  The per-row lock maps
// are lazily populated.
type Store struct {
	mu sync.Mutex

	events   map[uint64]model.Event
	seats    map[uint64]map[uint32]model.Seat
	bookings map[uint64]model.Booking
	users    map[uint64]model.User
	emails   map[string]uint64

	eventLocks   map[uint64]*sync.Mutex
	bookingLocks map[uint64]*sync.Mutex

	nextEventID   uint64
	nextBookingID uint64
	nextUserID    uint64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:       make(map[uint64]model.Event),
		seats:        make(map[uint64]map[uint32]model.Seat),
		bookings:     make(map[uint64]model.Booking),
		users:        make(map[uint64]model.User),
		emails:       make(map[string]uint64),
		eventLocks:   make(map[uint64]*sync.Mutex),
		bookingLocks: make(map[uint64]*sync.Mutex),
	}
}

// WithinTx runs fn against a transactional view.  Staged writes are
// applied only when fn succeeds; row locks taken during fn are released
// when the transaction ends either way.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	t := &memTx{s: s}
	defer t.releaseLocks()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

// lockFor returns the lazily created mutex for the given key.
func lockFor(mu *sync.Mutex, locks map[uint64]*sync.Mutex, key uint64) *sync.Mutex {
	mu.Lock()
	defer mu.Unlock()
	l, ok := locks[key]
	if !ok {
		l = &sync.Mutex{}
		locks[key] = l
	}
	return l
}

// EventByID fetches an event.
func (s *Store) EventByID(ctx context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &ev, nil
}

// ListEvents returns all events ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events, nil
}

// SeatsByEvent returns the whole seat ledger of one event ordered by
// seat number.
func (s *Store) SeatsByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := s.seats[eventID]
	seats := make([]model.Seat, 0, len(ledger))
	for _, seat := range ledger {
		seats = append(seats, copySeat(seat))
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].SeatNumber < seats[j].SeatNumber })
	return seats, nil
}

// BookingByID fetches a booking snapshot.
func (s *Store) BookingByID(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingLocked(id)
}

// bookingLocked returns a copy of a booking; callers must hold mu.
func (s *Store) bookingLocked(id uint64) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := b
	cp.SeatNumbers = append([]uint32(nil), b.SeatNumbers...)
	return &cp, nil
}

// UserByID fetches a user.
func (s *Store) UserByID(ctx context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// UserByEmail fetches a user by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := s.users[id]
	return &u, nil
}

// CreateUser inserts a user, enforcing email uniqueness.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return repository.ErrEmailExists
	}
	s.nextUserID++
	u.ID = s.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = *u
	s.emails[u.Email] = u.ID
	return nil
}

func copySeat(seat model.Seat) model.Seat {
	cp := seat
	if seat.HeldByBookingID != nil {
		id := *seat.HeldByBookingID
		cp.HeldByBookingID = &id
	}
	return cp
}
