package service

import (
	"context"
	"encoding/json"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/queue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

// NotifyStore is the data access for notifications.
// Satisfied by *database.Queries; narrow interface for testability.
type NotifyStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Publisher hands a stored notification to the async delivery pipeline.
// Satisfied by *queue.Broker.
type Publisher interface {
	PublishNotification(ctx context.Context, msg queue.NotificationMessage) error
}

// Dispatcher is the notification entry point used by the order, payment, and
// lifecycle services. Implementations never fail or block the calling
// operation; a zero userID addresses all staff.
type Dispatcher interface {
	Notify(ctx context.Context, userID, orderID uuid.UUID, kind, title, message string, payload any) uuid.UUID
}

// notifyOrder routes an order event to its customer when one is attached,
// otherwise to the staff feed (guest orders have nobody else to tell).
func notifyOrder(ctx context.Context, d Dispatcher, order database.Order, kind, title, msg string, payload map[string]string) {
	if d == nil {
		return
	}
	if order.CustomerID.Valid {
		d.Notify(ctx, uuid.UUID(order.CustomerID.Bytes), order.ID, kind, title, msg, payload)
	} else {
		d.Notify(ctx, uuid.Nil, order.ID, kind, title, msg, payload)
	}
}

type NotifyService struct {
	store NotifyStore
	pub   Publisher
}

func NewNotifyService(store NotifyStore, pub Publisher) *NotifyService {
	return &NotifyService{store: store, pub: pub}
}

// Notify stores a notification row and enqueues it for delivery, returning
// the new row's ID or uuid.Nil. Errors are logged and swallowed: an order
// must never fail because its notification could not be written.
func (s *NotifyService) Notify(ctx context.Context, userID, orderID uuid.UUID, kind, title, message string, payload any) uuid.UUID {
	// The notification outlives the request that triggered it.
	ctx = context.WithoutCancel(ctx)

	var payloadText pgtype.Text
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("kind", kind).Msg("marshal notification payload")
		} else {
			payloadText = pgtype.Text{String: string(b), Valid: true}
		}
	}

	n, err := s.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:  uuidOrNull(userID),
		OrderID: uuidOrNull(orderID),
		Kind:    kind,
		Title:   title,
		Message: message,
		Payload: payloadText,
	})
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("store notification")
		return uuid.Nil
	}

	if s.pub != nil {
		msg := queue.NotificationMessage{
			ID:        n.ID,
			UserID:    userID,
			OrderID:   orderID,
			Kind:      kind,
			Title:     title,
			Message:   message,
			CreatedAt: n.CreatedAt,
		}
		if err := s.pub.PublishNotification(ctx, msg); err != nil {
			log.Error().Err(err).Str("kind", kind).Str("notification_id", n.ID.String()).Msg("publish notification")
		}
	}

	return n.ID
}
