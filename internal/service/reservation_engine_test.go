package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-reservation/internal/model"
	"github.com/iliyamo/event-seat-reservation/internal/queue"
	"github.com/iliyamo/event-seat-reservation/internal/repository"
	"github.com/iliyamo/event-seat-reservation/internal/repository/memstore"
	"github.com/iliyamo/event-seat-reservation/internal/service"
)

// recordingScheduler captures scheduled expiries instead of delivering
// them.
type recordingScheduler struct {
	mu       sync.Mutex
	bookings []uint64
	delays   []time.Duration
}

func (r *recordingScheduler) ScheduleExpiry(ctx context.Context, bookingID uint64, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, bookingID)
	r.delays = append(r.delays, delay)
	return nil
}

func newTestEngine(t *testing.T) (*service.ReservationEngine, *memstore.Store, *recordingScheduler) {
	t.Helper()
	store := memstore.New()
	sched := &recordingScheduler{}
	engine := service.NewReservationEngine(store, sched, 0, 0)
	return engine, store, sched
}

func seedEventAndUser(t *testing.T, engine *service.ReservationEngine, store *memstore.Store, totalSeats uint32) (eventID, userID uint64) {
	t.Helper()
	ctx := context.Background()
	ev, err := engine.CreateEvent(ctx, "Go Conference", time.Now().Add(24*time.Hour), totalSeats)
	require.NoError(t, err)
	u := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, store.CreateUser(ctx, u))
	return ev.ID, u.ID
}

func seatByNumber(t *testing.T, store *memstore.Store, eventID uint64, n uint32) model.Seat {
	t.Helper()
	seats, err := store.SeatsByEvent(context.Background(), eventID)
	require.NoError(t, err)
	for _, s := range seats {
		if s.SeatNumber == n {
			return s
		}
	}
	t.Fatalf("seat %d not found for event %d", n, eventID)
	return model.Seat{}
}

func TestCreateEventSeedsSeatLedger(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	ev, err := engine.CreateEvent(ctx, "Jazz Night", time.Now().Add(time.Hour), 5)
	require.NoError(t, err)
	assert.NotZero(t, ev.ID)

	seats, err := store.SeatsByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, seats, 5)
	for i, s := range seats {
		assert.Equal(t, uint32(i+1), s.SeatNumber)
		assert.Equal(t, model.SeatAvailable, s.Status)
		assert.Nil(t, s.HeldByBookingID)
	}
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.CreateEvent(ctx, "", time.Now(), 5)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)

	_, err = engine.CreateEvent(ctx, "No Seats", time.Now(), 0)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)
}

func TestClaimSeatsCreatesPendingBooking(t *testing.T) {
	engine, store, sched := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)

	b, err := engine.ClaimSeats(context.Background(), eventID, userID, []uint32{2, 3})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, uint32(0), b.Version)
	assert.Equal(t, []uint32{2, 3}, b.SeatNumbers)

	for _, n := range []uint32{2, 3} {
		seat := seatByNumber(t, store, eventID, n)
		assert.Equal(t, model.SeatHeld, seat.Status)
		require.NotNil(t, seat.HeldByBookingID)
		assert.Equal(t, b.ID, *seat.HeldByBookingID)
	}
	// Untouched seats stay available.
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, eventID, 1).Status)

	require.Len(t, sched.bookings, 1)
	assert.Equal(t, b.ID, sched.bookings[0])
	assert.Equal(t, service.DefaultGracePeriod, sched.delays[0])
}

func TestClaimSeatsNormalizesRequest(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)

	b, err := engine.ClaimSeats(context.Background(), eventID, userID, []uint32{3, 0, 1, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 3}, b.SeatNumbers)

	_, err = engine.ClaimSeats(context.Background(), eventID, userID, []uint32{0, 0})
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)
}

func TestClaimSeatsReportsMissingSeats(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)

	_, err := engine.ClaimSeats(context.Background(), eventID, userID, []uint32{1, 99})
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)
	assert.Equal(t, []uint32{99}, se.SeatNumbers)

	// The valid seat in the rejected request is not held.
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, eventID, 1).Status)
}

func TestClaimSeatsReportsUnavailableSeats(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	_, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{2})
	require.NoError(t, err)

	_, err = engine.ClaimSeats(ctx, eventID, userID, []uint32{2, 3})
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindConflict, se.Kind)
	assert.Equal(t, []uint32{2}, se.SeatNumbers)

	// The free seat named alongside the held one stays available.
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, eventID, 3).Status)
}

func TestClaimSeatsUnknownEventOrUser(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)

	var se *service.Error
	_, err := engine.ClaimSeats(context.Background(), eventID+100, userID, []uint32{1})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindNotFound, se.Kind)

	_, err = engine.ClaimSeats(context.Background(), eventID, userID+100, []uint32{1})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindNotFound, se.Kind)
}

func TestClaimSeatsConcurrentOverlapOneWins(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 10)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = engine.ClaimSeats(context.Background(), eventID, userID, []uint32{4, 5})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var se *service.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, service.KindConflict, se.Kind)
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	seat := seatByNumber(t, store, eventID, 4)
	assert.Equal(t, model.SeatHeld, seat.Status)
}

func TestConfirmBooking(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1, 2})
	require.NoError(t, err)

	confirmed, err := engine.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Equal(t, uint32(1), confirmed.Version)

	for _, n := range []uint32{1, 2} {
		seat := seatByNumber(t, store, eventID, n)
		assert.Equal(t, model.SeatBooked, seat.Status)
		assert.Nil(t, seat.HeldByBookingID)
	}
}

func TestConfirmBookingRejectsNonPending(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1})
	require.NoError(t, err)
	_, err = engine.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	_, err = engine.ConfirmBooking(ctx, b.ID)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)

	// Repeat confirmation leaves the booking untouched.
	got, err := engine.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, uint32(1), got.Version)
}

func TestConfirmBookingNotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ConfirmBooking(context.Background(), 404)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindNotFound, se.Kind)
}

func TestCancelPendingBooking(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1, 2})
	require.NoError(t, err)

	cancelled, err := engine.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingFailed, cancelled.Status)
	assert.Equal(t, uint32(1), cancelled.Version)

	for _, n := range []uint32{1, 2} {
		seat := seatByNumber(t, store, eventID, n)
		assert.Equal(t, model.SeatAvailable, seat.Status)
		assert.Nil(t, seat.HeldByBookingID)
	}
}

func TestCancelConfirmedBookingReleasesSeats(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{3})
	require.NoError(t, err)
	_, err = engine.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	cancelled, err := engine.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingFailed, cancelled.Status)
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, eventID, 3).Status)
}

func TestCancelFailedBookingIsRejected(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1})
	require.NoError(t, err)
	_, err = engine.CancelBooking(ctx, b.ID)
	require.NoError(t, err)

	_, err = engine.CancelBooking(ctx, b.ID)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindInvalidInput, se.Kind)
}

func TestExpireBookingReleasesSeatsOnce(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1, 2})
	require.NoError(t, err)

	require.NoError(t, engine.ExpireBooking(ctx, b.ID))
	got, err := engine.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingFailed, got.Status)
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, eventID, 1).Status)

	// Duplicate and late deliveries are no-ops.
	require.NoError(t, engine.ExpireBooking(ctx, b.ID))
	require.NoError(t, engine.ExpireBooking(ctx, b.ID+100))
}

func TestExpireBookingSkipsConfirmed(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	eventID, userID := seedEventAndUser(t, engine, store, 5)
	ctx := context.Background()

	b, err := engine.ClaimSeats(ctx, eventID, userID, []uint32{1})
	require.NoError(t, err)
	_, err = engine.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	require.NoError(t, engine.ExpireBooking(ctx, b.ID))
	got, err := engine.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)
	assert.Equal(t, model.SeatBooked, seatByNumber(t, store, eventID, 1).Status)
}

func TestTimerSchedulerExpiresPendingBooking(t *testing.T) {
	store := memstore.New()
	engine := service.NewReservationEngine(store, nil, 20*time.Millisecond, 0)
	engine.SetScheduler(queue.NewTimerScheduler(engine.ExpireBooking))
	ctx := context.Background()

	ev, err := engine.CreateEvent(ctx, "Pop Up Show", time.Now().Add(time.Hour), 3)
	require.NoError(t, err)
	u := &model.User{Email: "bob@example.com", PasswordHash: "x", Role: model.RoleCustomer}
	require.NoError(t, store.CreateUser(ctx, u))

	b, err := engine.ClaimSeats(ctx, ev.ID, u.ID, []uint32{1})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := engine.GetBooking(ctx, b.ID)
		return err == nil && got.Status == model.BookingFailed
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, model.SeatAvailable, seatByNumber(t, store, ev.ID, 1).Status)
}

// conflictStore wraps the memory store and forces a version conflict on
// the booking status update, standing in for a concurrent writer.
type conflictStore struct {
	*memstore.Store
}

type conflictTx struct {
	repository.Tx
}

func (s *conflictStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		return fn(&conflictTx{Tx: tx})
	})
}

func (t *conflictTx) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus, expectedVersion uint32) error {
	return repository.ErrVersionConflict
}

func TestConfirmBookingMapsVersionConflict(t *testing.T) {
	base := memstore.New()
	sched := &recordingScheduler{}
	setup := service.NewReservationEngine(base, sched, 0, 0)
	eventID, userID := seedEventAndUser(t, setup, base, 5)

	b, err := setup.ClaimSeats(context.Background(), eventID, userID, []uint32{1})
	require.NoError(t, err)

	engine := service.NewReservationEngine(&conflictStore{Store: base}, sched, 0, 0)
	_, err = engine.ConfirmBooking(context.Background(), b.ID)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, service.KindConflict, se.Kind)

	// Expiry treats the same conflict as another writer having settled
	// the booking.
	require.NoError(t, engine.ExpireBooking(context.Background(), b.ID))
}
