package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/database"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/enum"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/queue"
	"github.com/google/uuid"
)

// --- Mock implementations ---

type mockNotifyStore struct {
	createNotificationFn func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

func (m *mockNotifyStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	return m.createNotificationFn(ctx, arg)
}

type mockPublisher struct {
	published []queue.NotificationMessage
	err       error
}

func (m *mockPublisher) PublishNotification(ctx context.Context, msg queue.NotificationMessage) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msg)
	return nil
}

// --- Tests ---

func TestNotify_StoresAndPublishes(t *testing.T) {
	rowID := uuid.New()
	userID := uuid.New()
	orderID := uuid.New()

	var captured database.CreateNotificationParams
	store := &mockNotifyStore{
		createNotificationFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			captured = arg
			return database.Notification{ID: rowID, Kind: arg.Kind}, nil
		},
	}
	pub := &mockPublisher{}

	svc := NewNotifyService(store, pub)
	got := svc.Notify(context.Background(), userID, orderID, enum.NotificationOrderReady,
		"Order ready", "Order VND-20250101-0001 is ready for pickup.",
		map[string]string{"order_number": "VND-20250101-0001"})

	if got != rowID {
		t.Errorf("returned ID: got %v, want %v", got, rowID)
	}
	if uuid.UUID(captured.UserID.Bytes) != userID || !captured.UserID.Valid {
		t.Errorf("user_id: got %+v", captured.UserID)
	}
	if uuid.UUID(captured.OrderID.Bytes) != orderID || !captured.OrderID.Valid {
		t.Errorf("order_id: got %+v", captured.OrderID)
	}
	if captured.Kind != enum.NotificationOrderReady {
		t.Errorf("kind: got %q", captured.Kind)
	}
	if !captured.Payload.Valid || !strings.Contains(captured.Payload.String, "order_number") {
		t.Errorf("payload: got %+v", captured.Payload)
	}

	if len(pub.published) != 1 {
		t.Fatalf("published: got %d messages, want 1", len(pub.published))
	}
	msg := pub.published[0]
	if msg.ID != rowID || msg.UserID != userID || msg.Kind != enum.NotificationOrderReady {
		t.Errorf("published message: got %+v", msg)
	}
}

func TestNotify_StaffWideRow(t *testing.T) {
	var captured database.CreateNotificationParams
	store := &mockNotifyStore{
		createNotificationFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			captured = arg
			return database.Notification{ID: uuid.New()}, nil
		},
	}

	svc := NewNotifyService(store, nil)
	svc.Notify(context.Background(), uuid.Nil, uuid.New(), enum.NotificationOrderPlaced, "New order", "Order placed.", nil)

	// A zero user ID means the row targets every staff account.
	if captured.UserID.Valid {
		t.Errorf("user_id should be null for staff-wide rows, got %+v", captured.UserID)
	}
	if captured.Payload.Valid {
		t.Errorf("payload should be null when none is given, got %+v", captured.Payload)
	}
}

func TestNotify_StoreFailureSwallowed(t *testing.T) {
	store := &mockNotifyStore{
		createNotificationFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			return database.Notification{}, errors.New("disk full")
		},
	}
	pub := &mockPublisher{}

	svc := NewNotifyService(store, pub)
	got := svc.Notify(context.Background(), uuid.New(), uuid.New(), enum.NotificationOrderPlaced, "New order", "Order placed.", nil)

	if got != uuid.Nil {
		t.Errorf("expected uuid.Nil on store failure, got %v", got)
	}
	if len(pub.published) != 0 {
		t.Errorf("nothing should be published when the row was not stored, got %d", len(pub.published))
	}
}

func TestNotify_PublishFailureSwallowed(t *testing.T) {
	rowID := uuid.New()
	store := &mockNotifyStore{
		createNotificationFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			return database.Notification{ID: rowID}, nil
		},
	}
	pub := &mockPublisher{err: errors.New("broker unreachable")}

	svc := NewNotifyService(store, pub)
	got := svc.Notify(context.Background(), uuid.New(), uuid.New(), enum.NotificationOrderPlaced, "New order", "Order placed.", nil)

	// The row exists; a delivery hiccup must not look like a failure.
	if got != rowID {
		t.Errorf("expected stored row ID despite publish failure, got %v", got)
	}
}

func TestNotify_SurvivesCancelledContext(t *testing.T) {
	stored := false
	store := &mockNotifyStore{
		createNotificationFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			if err := ctx.Err(); err != nil {
				t.Errorf("store saw a dead context: %v", err)
			}
			stored = true
			return database.Notification{ID: uuid.New()}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewNotifyService(store, nil)
	svc.Notify(ctx, uuid.New(), uuid.New(), enum.NotificationOrderPlaced, "New order", "Order placed.", nil)

	if !stored {
		t.Error("notification should be stored even after the request context ended")
	}
}
