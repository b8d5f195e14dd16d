package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher pushes domain events to RabbitMQ. Each publish dials a
// fresh connection; errors are logged and returned so callers can treat
// event delivery as best-effort without interrupting the request flow.
type Publisher struct {
	URL string
	Log *zap.Logger
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{URL: url, Log: log}
}

// BookingCreated publishes to the booking.created queue.
func (p *Publisher) BookingCreated(ctx context.Context, e BookingCreatedEvent) error {
	return p.publish(ctx, QueueBookingCreated, e)
}

// BookingCancelled publishes to the booking.cancelled queue.
func (p *Publisher) BookingCancelled(ctx context.Context, e BookingCancelledEvent) error {
	return p.publish(ctx, QueueBookingCancelled, e)
}

// OfferReindex publishes to the offer.reindex queue.
func (p *Publisher) OfferReindex(ctx context.Context, e OfferReindexEvent) error {
	return p.publish(ctx, QueueOfferReindex, e)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq dial failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq channel open failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Declare is idempotent. Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.Log.Warn("rabbitmq queue declare failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.Log.Warn("rabbitmq marshal event failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq publish failed", zap.String("queue", queueName), zap.Error(err))
		return err
	}
	return nil
}
