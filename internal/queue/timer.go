package queue

import (
	"context"
	"log"
	"time"
)

// ExpireFunc is invoked when a scheduled expiry comes due.  It receives
// a fresh context because the request that created the booking has long
// finished by then.
type ExpireFunc func(ctx context.Context, bookingID uint64) error

// TimerScheduler delivers expiry tasks with in-process timers.  It is
// the default when no broker is configured and the fixture used by
// tests.  Tasks do not survive a process restart; deployments that need
// durable expiry should configure the AMQP scheduler instead.
type TimerScheduler struct {
	expire ExpireFunc
}

// NewTimerScheduler returns a TimerScheduler calling expire for each
// due task.
func NewTimerScheduler(expire ExpireFunc) *TimerScheduler {
	if expire == nil {
		panic("nil expire func passed to NewTimerScheduler")
	}
	return &TimerScheduler{expire: expire}
}

// ScheduleExpiry arms a timer that fires once after delay.  Errors from
// the expire callback are logged and dropped: expiry is idempotent and
// best-effort by contract.
func (t *TimerScheduler) ScheduleExpiry(ctx context.Context, bookingID uint64, delay time.Duration) error {
	time.AfterFunc(delay, func() {
		if err := t.expire(context.Background(), bookingID); err != nil {
			log.Printf("expiry-timer: expire booking %d failed: %v", bookingID, err)
		}
	})
	return nil
}
