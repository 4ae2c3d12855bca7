package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/event-seat-reservation/internal/model"
)

// mysqlTx is the transactional view handed to WithinTx closures.
type mysqlTx struct {
	tx *sql.Tx
}

// SeatsForUpdate fetches the requested seats under exclusive InnoDB row
// locks.  Competing claims on overlapping seats block here until the
// first transaction commits or rolls back.  Rows are locked in
// seat_number order so two overlapping claims always acquire locks in
// the same sequence.
func (t *mysqlTx) SeatsForUpdate(ctx context.Context, eventID uint64, seatNumbers []uint32) ([]model.Seat, error) {
	if len(seatNumbers) == 0 {
		return []model.Seat{}, nil
	}
	query := `SELECT event_id, seat_number, status, held_by_booking_id
              FROM seats
              WHERE event_id = ? AND seat_number IN (` + placeholders(len(seatNumbers)) + `)
              ORDER BY seat_number
              FOR UPDATE`
	args := make([]interface{}, 0, len(seatNumbers)+1)
	args = append(args, eventID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0, len(seatNumbers))
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

// UpdateSeats bulk-updates status and holder reference for the given
// seat numbers of one event.
func (t *mysqlTx) UpdateSeats(ctx context.Context, eventID uint64, seatNumbers []uint32, status model.SeatStatus, heldBy *uint64) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	query := `UPDATE seats SET status = ?, held_by_booking_id = ?
              WHERE event_id = ? AND seat_number IN (` + placeholders(len(seatNumbers)) + `)`
	args := make([]interface{}, 0, len(seatNumbers)+3)
	var holder sql.NullInt64
	if heldBy != nil {
		holder = sql.NullInt64{Int64: int64(*heldBy), Valid: true}
	}
	args = append(args, status, holder, eventID)
	for _, n := range seatNumbers {
		args = append(args, n)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}

// InsertBooking persists a new booking and queries the row back to
// populate the generated ID and the database-assigned timestamps.
func (t *mysqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	seatJSON, err := json.Marshal(b.SeatNumbers)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (event_id, user_id, seat_numbers, status, version) VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.EventID, b.UserID, seatJSON, b.Status, b.Version)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return t.tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// Booking loads a booking with normal row isolation.
func (t *mysqlTx) Booking(ctx context.Context, id uint64) (*model.Booking, error) {
	return queryBooking(ctx, t.tx, id, false)
}

// BookingForUpdate loads a booking under an exclusive row lock.
func (t *mysqlTx) BookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return queryBooking(ctx, t.tx, id, true)
}

// UpdateBookingStatus performs the optimistic status update.  The WHERE
// clause matches on the version read earlier in the operation; zero
// affected rows means a concurrent writer advanced it first.
func (t *mysqlTx) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus, expectedVersion uint32) error {
	const q = `UPDATE bookings
               SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND version = ?`
	res, err := t.tx.ExecContext(ctx, q, status, id, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// InsertEvent persists a new event and queries the row back to populate
// the generated ID and creation timestamp.
func (t *mysqlTx) InsertEvent(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (title, starts_at, total_seats) VALUES (?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, ev.Title, ev.StartsAt.UTC(), ev.TotalSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	const sel = `SELECT created_at FROM events WHERE id = ?`
	return t.tx.QueryRowContext(ctx, sel, ev.ID).Scan(&ev.CreatedAt)
}

// InsertSeats bulk-creates seat rows in a single statement.
func (t *mysqlTx) InsertSeats(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, seat_number, status) VALUES `
	args := make([]interface{}, 0, len(seats)*3)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, seat.EventID, seat.SeatNumber, seat.Status)
	}
	_, err := t.tx.ExecContext(ctx, query, args...)
	return err
}
