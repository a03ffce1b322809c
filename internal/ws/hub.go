package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// userEvent is an internal struct for routing events to a single room.
// A zero UserID targets the shared staff room.
type userEvent struct {
	UserID uuid.UUID
	Event  Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by user ID; uuid.Nil keys the staff room
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *userEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.addToRoom(client.userID, client)
			if client.staff {
				// Staff screens watch the whole floor, not just their
				// own account.
				h.addToRoom(uuid.Nil, client)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeClient(client) {
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.UserID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					if h.removeClient(client) {
						close(client.send)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// addToRoom registers a client under a room key. Caller holds h.mu.
func (h *Hub) addToRoom(room uuid.UUID, client *Client) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// removeClient drops a client from every room it joined, reporting whether
// it was still registered anywhere. Caller holds h.mu.
func (h *Hub) removeClient(client *Client) bool {
	found := false
	for _, room := range []uuid.UUID{client.userID, uuid.Nil} {
		clients, ok := h.rooms[room]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			found = true
		}
		// Clean up empty rooms
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	return found
}

// PushToUser sends an event to every connection the given user has open
func (h *Hub) PushToUser(userID uuid.UUID, event Event) {
	if userID == uuid.Nil {
		return
	}
	h.broadcast <- &userEvent{UserID: userID, Event: event}
}

// PushToStaff sends an event to every connected staff screen
func (h *Hub) PushToStaff(event Event) {
	h.broadcast <- &userEvent{UserID: uuid.Nil, Event: event}
}
