package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	notificationExchange = "notifications"
	dispatchQueue        = "notifications.dispatch"
)

// NotificationMessage is the wire form of a stored notification. A zero
// UserID addresses all staff.
type NotificationMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	OrderID   uuid.UUID `json:"order_id,omitempty"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Broker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Connect(url string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(notificationExchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", notificationExchange, err)
	}
	return &Broker{conn: conn, ch: ch}, nil
}

func (b *Broker) PublishNotification(ctx context.Context, msg NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return b.ch.PublishWithContext(ctx, notificationExchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// SubscribeNotifications consumes the dispatch queue and runs handler for
// each message. Messages that fail to decode or handle are dropped rather
// than requeued; the notifications table remains the source of truth.
func (b *Broker) SubscribeNotifications(ctx context.Context, handler func(context.Context, NotificationMessage) error) error {
	q, err := b.ch.QueueDeclare(dispatchQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %q: %w", dispatchQueue, err)
	}
	if err := b.ch.QueueBind(q.Name, "", notificationExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q: %w", dispatchQueue, err)
	}
	deliveries, err := b.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %q: %w", dispatchQueue, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var msg NotificationMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					log.Error().Err(err).Msg("decode notification message")
					d.Nack(false, false)
					continue
				}
				if err := handler(ctx, msg); err != nil {
					log.Error().Err(err).Str("notification_id", msg.ID.String()).Msg("handle notification")
					d.Nack(false, false)
					continue
				}
				d.Ack(false)
			}
		}
	}()
	return nil
}

func (b *Broker) Close() error {
	if err := b.ch.Close(); err != nil {
		b.conn.Close()
		return err
	}
	return b.conn.Close()
}
