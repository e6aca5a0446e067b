// Package service contains the side-effect adapters the booking engine
// publishes through: the RabbitMQ event notifier and the Redis view
// cache invalidator. Both are best-effort; their failures are logged
// and never interrupt the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/satriadp/meeting-room-reservation/internal/booking"
	"github.com/satriadp/meeting-room-reservation/internal/queue"
)

// EventNotifier publishes booking lifecycle events to RabbitMQ. A
// fresh connection is dialed per publish; events are rare enough that
// connection churn is cheaper than managing a long-lived channel.
type EventNotifier struct {
	URL string
}

// NewEventNotifier returns a notifier publishing to the given broker
// URL, falling back to the environment when empty.
func NewEventNotifier(url string) *EventNotifier {
	if url == "" {
		url = queue.BrokerURL()
	}
	return &EventNotifier{URL: url}
}

// PublishBookingEvent publishes the event to the booking.events queue.
// Messages are marked persistent. Any error is logged and returned so
// the caller can choose to ignore it.
func (n *EventNotifier) PublishBookingEvent(ctx context.Context, ev booking.Event) error {
	conn, err := amqp.Dial(n.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.EventsQueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	payload := queue.BookingEvent{
		Type:             ev.Type,
		BookingID:        ev.Booking.ID,
		RoomID:           ev.Booking.RoomID,
		RoomName:         ev.RoomName,
		UserID:           ev.Booking.UserID,
		UserName:         ev.UserName,
		UserEmail:        ev.UserEmail,
		Title:            ev.Booking.Title,
		StartsAt:         ev.Booking.StartTime.UTC().Format(time.RFC3339),
		EndsAt:           ev.Booking.EndTime.UTC().Format(time.RFC3339),
		ParticipantCount: ev.Booking.ParticipantCount,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue.EventsQueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
