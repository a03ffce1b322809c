package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/queue"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/ws"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pusher fans an event out to connected sockets. Satisfied by *ws.Hub.
type Pusher interface {
	PushToUser(userID uuid.UUID, event ws.Event)
	PushToStaff(event ws.Event)
}

// Subscriber delivers stored notifications. Satisfied by *queue.Broker.
type Subscriber interface {
	SubscribeNotifications(ctx context.Context, handler func(context.Context, queue.NotificationMessage) error) error
}

// NotificationStore marks rows as delivered.
// Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
}

// NotificationWorker moves stored notifications from the broker to the
// websocket rooms.
type NotificationWorker struct {
	sub   Subscriber
	hub   Pusher
	store NotificationStore
}

func NewNotificationWorker(sub Subscriber, hub Pusher, store NotificationStore) *NotificationWorker {
	return &NotificationWorker{sub: sub, hub: hub, store: store}
}

// Start registers the consumer and returns; delivery runs on the broker's
// goroutine until ctx ends.
func (w *NotificationWorker) Start(ctx context.Context) error {
	return w.sub.SubscribeNotifications(ctx, w.deliver)
}

// deliver pushes one notification out. Staff screens get every order event;
// a personal copy goes to the addressed user's room when one is set.
func (w *NotificationWorker) deliver(ctx context.Context, msg queue.NotificationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	event := ws.Event{Type: msg.Kind, Payload: payload}

	w.hub.PushToStaff(event)
	if msg.UserID != uuid.Nil {
		w.hub.PushToUser(msg.UserID, event)
	}

	if msg.ID != uuid.Nil {
		if err := w.store.MarkNotificationSent(ctx, msg.ID); err != nil {
			// The push already went out; do not requeue over bookkeeping.
			log.Warn().Err(err).Str("notification_id", msg.ID.String()).Msg("mark notification sent")
		}
	}
	return nil
}
