package queue

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPScheduler publishes expiry tasks to RabbitMQ so they survive a
// process restart.  Each call declares the queues idempotently and
// publishes one persistent message whose per-message expiration equals
// the grace period; when the TTL elapses the broker dead-letters the
// message into the expiry queue.  Errors are logged and returned so the
// caller can ignore failures without interrupting the booking flow.
type AMQPScheduler struct {
	url string
}

// NewAMQPScheduler returns a scheduler publishing to the broker at url.
func NewAMQPScheduler(url string) *AMQPScheduler {
	return &AMQPScheduler{url: url}
}

// declareQueues sets up the wait queue (dead-lettering into the expiry
// queue) and the expiry queue itself.  Both are durable so messages
// survive broker restarts.
func declareQueues(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		expiryQueueName, // name
		true,            // durable
		false,           // autoDelete
		false,           // exclusive
		false,           // noWait
		nil,             // args
	); err != nil {
		return err
	}
	_, err := ch.QueueDeclare(
		waitQueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": expiryQueueName,
		},
	)
	return err
}

// ScheduleExpiry publishes the expiry task for one booking with the
// given delay.
func (s *AMQPScheduler) ScheduleExpiry(ctx context.Context, bookingID uint64, delay time.Duration) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		log.Printf("expiry-scheduler: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("expiry-scheduler: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareQueues(ch); err != nil {
		log.Printf("expiry-scheduler: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(BookingExpiryMessage{BookingID: bookingID})
	if err != nil {
		log.Printf("expiry-scheduler: marshal failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",            // default exchange
		waitQueueName, // routing key = queue name
		false,         // mandatory
		false,         // immediate
		pub,
	); err != nil {
		log.Printf("expiry-scheduler: publish failed: %v", err)
		return err
	}
	return nil
}
