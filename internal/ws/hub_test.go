package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, userID uuid.UUID, staff bool) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		staff:  staff,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, false)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[userID] == nil {
		t.Fatal("user room not created")
	}
	if !hub.rooms[userID][client] {
		t.Fatal("client not registered in user room")
	}
	if hub.rooms[uuid.Nil][client] {
		t.Fatal("customer client must not join the staff room")
	}
}

func TestHubStaffJoinsBothRooms(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, true)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.rooms[userID][client] {
		t.Fatal("staff client not registered in own room")
	}
	if !hub.rooms[uuid.Nil][client] {
		t.Fatal("staff client not registered in staff room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, true)

	// Register client
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Unregister client
	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Both rooms should be cleaned up when empty
	if hub.rooms[userID] != nil {
		t.Fatal("user room not cleaned up after last client unregistered")
	}
	if hub.rooms[uuid.Nil] != nil {
		t.Fatal("staff room not cleaned up after last client unregistered")
	}
}

func TestPushToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()

	client1 := mockClient(hub, user1, false)
	client2 := mockClient(hub, user2, false)

	// Register both clients
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Push to user1 only
	testPayload := json.RawMessage(`{"order_number":"VND-20250101-0001"}`)
	event := Event{
		Type:    "order_ready",
		Payload: testPayload,
	}
	hub.PushToUser(user1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != "order_ready" {
			t.Errorf("expected type 'order_ready', got '%s'", received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestPushToStaff(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	staff1 := mockClient(hub, uuid.New(), true)
	staff2 := mockClient(hub, uuid.New(), true)
	customer := mockClient(hub, uuid.New(), false)

	hub.register <- staff1
	hub.register <- staff2
	hub.register <- customer
	time.Sleep(10 * time.Millisecond)

	event := Event{
		Type:    "order_placed",
		Payload: json.RawMessage(`{"order_number":"VND-20250101-0002"}`),
	}
	hub.PushToStaff(event)

	// Both staff screens should receive the message
	for i, client := range []*Client{staff1, staff2} {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("staff%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order_placed" {
				t.Errorf("staff%d: expected type 'order_placed', got '%s'", i+1, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("staff%d did not receive message", i+1)
		}
	}

	// The customer should NOT receive staff traffic
	select {
	case <-customer.send:
		t.Fatal("customer should not receive staff broadcasts")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestStaffReceivesOwnUserEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	staffID := uuid.New()
	client := mockClient(hub, staffID, true)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// A staff member who placed their own order still gets the personal
	// notification through their user room.
	event := Event{
		Type:    "payment_received",
		Payload: json.RawMessage(`{"amount":"6800.00"}`),
	}
	hub.PushToUser(staffID, event)

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if received.Type != "payment_received" {
			t.Errorf("wrong event type: %s", received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("staff client did not receive personal event")
	}
}

func TestEventSerialization(t *testing.T) {
	testCases := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "order placed event",
			event: Event{
				Type:    "order_placed",
				Payload: json.RawMessage(`{"order_number":"VND-20250101-0001","total_amount":"6800.00"}`),
			},
			wantErr: false,
		},
		{
			name: "payment received event",
			event: Event{
				Type:    "payment_received",
				Payload: json.RawMessage(`{"order_number":"VND-20250101-0001","amount":"6800.00"}`),
			},
			wantErr: false,
		},
		{
			name: "order ready event",
			event: Event{
				Type:    "order_ready",
				Payload: json.RawMessage(`{"order_number":"VND-20250101-0001","status":"ready"}`),
			},
			wantErr: false,
		},
		{
			name: "transfer submitted event",
			event: Event{
				Type:    "transfer_submitted",
				Payload: json.RawMessage(`{"order_number":"VND-20250101-0001","sender_name":"Ada Obi"}`),
			},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.event)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Marshal error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			// Verify we can unmarshal back
			var decoded Event
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}

			if decoded.Type != tc.event.Type {
				t.Errorf("Type mismatch: got %s, want %s", decoded.Type, tc.event.Type)
			}
			if string(decoded.Payload) != string(tc.event.Payload) {
				t.Errorf("Payload mismatch: got %s, want %s", decoded.Payload, tc.event.Payload)
			}
		})
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client1 := mockClient(hub, userID, false)
	client2 := mockClient(hub, userID, false)

	// Register both connections for the same user (two open tabs)
	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister first client
	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[userID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[userID]))
	}
	hub.mu.RUnlock()

	// Unregister second client
	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[userID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestPushToUnknownUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Create a client for one user
	user1 := uuid.New()
	client1 := mockClient(hub, user1, false)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Push to a user with no open connections
	event := Event{
		Type:    "order_confirmed",
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.PushToUser(uuid.New(), event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestPushToUserIgnoresNilID(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	staff := mockClient(hub, uuid.New(), true)
	hub.register <- staff
	time.Sleep(10 * time.Millisecond)

	// A zero user ID must not leak into the staff room by accident;
	// staff broadcasts go through PushToStaff.
	hub.PushToUser(uuid.Nil, Event{Type: "order_placed"})

	select {
	case <-staff.send:
		t.Fatal("nil user push must not reach the staff room")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
