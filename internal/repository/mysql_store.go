package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-seat-reservation/internal/model"
)

// MySQLStore implements Store on top of a MySQL database.  Seat claims
// rely on InnoDB row locks acquired with SELECT ... FOR UPDATE; the
// lock is held until the enclosing transaction commits or rolls back.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithinTx runs fn inside a transaction.  The transaction is rolled
// back whenever fn or the commit returns an error, so a failed
// operation never leaves partial seat or booking writes behind.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// EventByID fetches a single event.  Returns ErrEventNotFound when the
// ID does not exist.
func (s *MySQLStore) EventByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, starts_at, total_seats, created_at FROM events WHERE id = ?`
	var ev model.Event
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&ev.ID, &ev.Title, &ev.StartsAt, &ev.TotalSeats, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// ListEvents returns all events ordered by start time ascending.
func (s *MySQLStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, title, starts_at, total_seats, created_at FROM events ORDER BY starts_at`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.StartsAt, &ev.TotalSeats, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// SeatsByEvent returns every seat of an event ordered by seat number.
// Ordering by seat_number provides deterministic output for clients.
func (s *MySQLStore) SeatsByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT event_id, seat_number, status, held_by_booking_id
               FROM seats
               WHERE event_id = ?
               ORDER BY seat_number`
	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// BookingByID fetches a booking snapshot without any transaction.
func (s *MySQLStore) BookingByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return queryBooking(ctx, s.db, id, false)
}

// UserByID fetches a user by primary key.
func (s *MySQLStore) UserByID(ctx context.Context, id uint64) (*model.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`
	var u model.User
	err := s.db.QueryRowContext(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserByEmail fetches a user by email.
func (s *MySQLStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`
	var u model.User
	err := s.db.QueryRowContext(ctx, q, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user and populates its ID.  A duplicate-key
// error on the email unique index is translated to ErrEmailExists.
func (s *MySQLStore) CreateUser(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeat(r rowScanner) (model.Seat, error) {
	var seat model.Seat
	var heldBy sql.NullInt64
	if err := r.Scan(&seat.EventID, &seat.SeatNumber, &seat.Status, &heldBy); err != nil {
		return model.Seat{}, err
	}
	if heldBy.Valid {
		id := uint64(heldBy.Int64)
		seat.HeldByBookingID = &id
	}
	return seat, nil
}

// queryBooking loads one booking via any queryable handle (DB or Tx),
// optionally appending FOR UPDATE to take an exclusive row lock.  The
// seat_numbers column holds a JSON array, matching the logical model of
// a booking exclusively owning its fixed seat set.
func queryBooking(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}, id uint64, forUpdate bool) (*model.Booking, error) {
	query := `SELECT id, event_id, user_id, seat_numbers, status, version, created_at, updated_at
              FROM bookings WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var b model.Booking
	var seatJSON []byte
	err := q.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.EventID, &b.UserID, &seatJSON, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(seatJSON, &b.SeatNumbers); err != nil {
		return nil, err
	}
	return &b, nil
}

// placeholders returns a "?, ?, ..." list of length n.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
