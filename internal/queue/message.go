// Package queue implements the expiry scheduler: delayed delivery of
// "expire booking" tasks either through RabbitMQ or an in-process
// timer.  The broker variant publishes into a wait queue whose
// per-message TTL and dead-letter routing deliver the message to the
// expiry queue once the grace period has passed.
package queue

const (
	// waitQueueName holds messages until their TTL elapses; expired
	// messages are dead-lettered to expiryQueueName.
	waitQueueName = "booking.expiry.wait"
	// expiryQueueName is consumed by StartExpiryConsumer.
	expiryQueueName = "booking.expiry"
)

// BookingExpiryMessage asks the consumer to expire one booking.  The
// scheduler performs no business validation; the engine's PENDING-state
// check decides whether the request is still relevant.
type BookingExpiryMessage struct {
	BookingID uint64 `json:"booking_id"`
}
