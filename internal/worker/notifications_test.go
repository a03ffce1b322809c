package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Uniqwrites1/vendorrPWA-backend/internal/queue"
	"github.com/Uniqwrites1/vendorrPWA-backend/internal/ws"
	"github.com/google/uuid"
)

// --- Mock implementations ---

type mockPusher struct {
	staff []ws.Event
	users map[uuid.UUID][]ws.Event
}

func newMockPusher() *mockPusher {
	return &mockPusher{users: make(map[uuid.UUID][]ws.Event)}
}

func (m *mockPusher) PushToStaff(event ws.Event) {
	m.staff = append(m.staff, event)
}

func (m *mockPusher) PushToUser(userID uuid.UUID, event ws.Event) {
	m.users[userID] = append(m.users[userID], event)
}

type mockSubscriber struct {
	handler func(context.Context, queue.NotificationMessage) error
}

func (m *mockSubscriber) SubscribeNotifications(ctx context.Context, handler func(context.Context, queue.NotificationMessage) error) error {
	m.handler = handler
	return nil
}

type mockMarkStore struct {
	marked  []uuid.UUID
	markErr error
}

func (m *mockMarkStore) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, id)
	return nil
}

// --- Tests ---

func TestNotificationWorker_PersonalMessage(t *testing.T) {
	sub := &mockSubscriber{}
	pusher := newMockPusher()
	store := &mockMarkStore{}

	w := NewNotificationWorker(sub, pusher, store)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sub.handler == nil {
		t.Fatal("worker did not register a handler")
	}

	msg := queue.NotificationMessage{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		OrderID:   uuid.New(),
		Kind:      "order_ready",
		Title:     "Order ready",
		Message:   "Order VND-20250101-0001 is ready for pickup.",
		CreatedAt: time.Now(),
	}
	if err := sub.handler(context.Background(), msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	// Staff screens see everything; the customer gets a personal copy.
	if len(pusher.staff) != 1 {
		t.Fatalf("staff events: got %d, want 1", len(pusher.staff))
	}
	if pusher.staff[0].Type != "order_ready" {
		t.Errorf("event type: got %q", pusher.staff[0].Type)
	}
	if !strings.Contains(string(pusher.staff[0].Payload), msg.Title) {
		t.Errorf("payload should carry the message, got %s", pusher.staff[0].Payload)
	}
	if got := len(pusher.users[msg.UserID]); got != 1 {
		t.Fatalf("user events: got %d, want 1", got)
	}

	if len(store.marked) != 1 || store.marked[0] != msg.ID {
		t.Errorf("marked sent: got %v, want [%v]", store.marked, msg.ID)
	}
}

func TestNotificationWorker_StaffWideMessage(t *testing.T) {
	sub := &mockSubscriber{}
	pusher := newMockPusher()
	store := &mockMarkStore{}

	w := NewNotificationWorker(sub, pusher, store)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg := queue.NotificationMessage{
		ID:    uuid.New(),
		Kind:  "order_placed",
		Title: "New order",
	}
	if err := sub.handler(context.Background(), msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(pusher.staff) != 1 {
		t.Fatalf("staff events: got %d, want 1", len(pusher.staff))
	}
	if len(pusher.users) != 0 {
		t.Errorf("a staff-wide message must not target a user room, got %v", pusher.users)
	}
}

func TestNotificationWorker_MarkFailureDoesNotRequeue(t *testing.T) {
	sub := &mockSubscriber{}
	pusher := newMockPusher()
	store := &mockMarkStore{markErr: errors.New("connection reset")}

	w := NewNotificationWorker(sub, pusher, store)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg := queue.NotificationMessage{ID: uuid.New(), Kind: "order_placed"}
	if err := sub.handler(context.Background(), msg); err != nil {
		t.Fatalf("a bookkeeping failure must not fail delivery, got %v", err)
	}
	if len(pusher.staff) != 1 {
		t.Errorf("the push should still have gone out, got %d events", len(pusher.staff))
	}
}
