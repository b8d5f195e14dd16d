package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// handlerFunc processes one delivery body. A returned error rejects the
// message without requeue to avoid tight redelivery loops.
type handlerFunc func(context.Context, []byte) error

// Consumer runs reconnecting consume loops against the broker.
type Consumer struct {
	URL string
	Log *zap.Logger
}

func NewConsumer(url string, log *zap.Logger) *Consumer {
	return &Consumer{URL: url, Log: log}
}

// run dials the broker and consumes queueName until ctx is cancelled,
// reconnecting with capped exponential backoff on any failure.
func (c *Consumer) run(ctx context.Context, queueName string, handle handlerFunc) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("consumer dial failed",
				zap.String("queue", queueName), zap.Duration("retry_in", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn, queueName, handle); err != nil {
			c.Log.Warn("consume loop ended",
				zap.String("queue", queueName), zap.Error(err))
			_ = conn.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		_ = conn.Close()
		return
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, handle handlerFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handle(ctx, d.Body); err != nil {
				c.Log.Warn("handle message failed",
					zap.String("queue", queueName), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// RunNotificationLog consumes booking.created and booking.cancelled and
// appends one human-readable line per event to logs/notifications.log.
// It stands in for the mail pipeline: the line is what the notification
// worker would render into an email.
func (c *Consumer) RunNotificationLog(ctx context.Context) {
	go c.run(ctx, QueueBookingCreated, func(_ context.Context, body []byte) error {
		var ev BookingCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		when := ""
		if ev.BeginningAt != nil {
			when = " | event_at=" + *ev.BeginningAt
		}
		line := fmt.Sprintf("[%s] Booking created | booking_id=%d | token=%s | user=%s | offer=%q | venue=%q | qty=%d | total=%d cents%s\n",
			ev.CreatedAt, ev.BookingID, ev.Token, ev.UserEmail, ev.OfferName, ev.VenueName, ev.Quantity, ev.TotalCents, when)
		return appendNotification(line)
	})
	go c.run(ctx, QueueBookingCancelled, func(_ context.Context, body []byte) error {
		var ev BookingCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		line := fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | token=%s | user=%s | offer=%q | reason=%s\n",
			ev.CancelledAt, ev.BookingID, ev.Token, ev.UserEmail, ev.OfferName, ev.Reason)
		return appendNotification(line)
	})
}

// RunOfferReindex consumes offer.reindex and hands each offer ID to fn,
// typically the search indexer refresh.
func (c *Consumer) RunOfferReindex(ctx context.Context, fn func(context.Context, uint64) error) {
	go c.run(ctx, QueueOfferReindex, func(ctx context.Context, body []byte) error {
		var ev OfferReindexEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		return fn(ctx, ev.OfferID)
	})
}

func appendNotification(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
