package service

import (
	"context"
	"time"
)

// ExpiryScheduler is the delayed-task port used by the engine to
// reclaim seats from abandoned holds.  Delivery is best-effort and
// at-most-once per scheduled task; duplicate or late deliveries are
// harmless because ExpireBooking no-ops on non-PENDING bookings.  The
// scheduler is passed to the engine as an explicit dependency rather
// than reached through a process-wide singleton.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID uint64, delay time.Duration) error
}
