package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartExpiryConsumer connects to RabbitMQ and consumes the expiry
// queue, calling expire once per delivered task.  It runs a reconnect
// loop with exponential backoff and never returns in normal operation.
// Delivery is at-most-once by configuration: the message is acked even
// when expire fails, because the engine's expiry is idempotent and the
// contract forbids automatic retries of the task itself.  Malformed
// messages are rejected without requeue to avoid tight loops.
func StartExpiryConsumer(url string, expire ExpireFunc) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("expiry-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(conn, expire)
		_ = conn.Close()
		log.Printf("expiry-consumer: consume loop ended: %v; reconnecting", err)
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, expire ExpireFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("expiry-consumer: set QoS failed: %v", err)
	}

	if err := declareQueues(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(expiryQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		var msg BookingExpiryMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			log.Printf("expiry-consumer: unmarshal failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue
			continue
		}
		if err := expire(context.Background(), msg.BookingID); err != nil {
			log.Printf("expiry-consumer: expire booking %d failed: %v", msg.BookingID, err)
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}
