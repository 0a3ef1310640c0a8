package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// EventPublisher is what services use to push events.
// Services depend on this interface, not on *Hub, so tests can record events.
type EventPublisher interface {
	BroadcastToAll(event Event)
	ClientCount() int
}

// Hub tracks every UI connection and fans events out to them.
//
// Register and unregister go through channels read by Run; broadcasts take
// the read lock and never block on a slow client (it is dropped instead).
type Hub struct {
	// clients: client id → Client.
	clients map[string]*Client
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns; pending register/unregister sends give up.
	done     chan struct{}
	doneOnce sync.Once

	seq atomic.Int64

	// Callbacks set in init_callbacks.go. Called in their own goroutine.
	onConnect           func(clientID string)
	onOpenConversation  func(clientID, conversationID string)
	onCloseConversation func(clientID string)
}

// NewHub creates a Hub. Start it with Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// OnConnect sets the callback run after a client registers.
func (h *Hub) OnConnect(fn func(clientID string)) {
	h.onConnect = fn
}

// OnOpenConversation sets the callback for open_conversation.
func (h *Hub) OnOpenConversation(fn func(clientID, conversationID string)) {
	h.onOpenConversation = fn
}

// OnCloseConversation sets the callback for close_conversation.
func (h *Hub) OnCloseConversation(fn func(clientID string)) {
	h.onCloseConversation = fn
}

// Run is the hub loop. It returns when ctx is cancelled, after closing every
// connection.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
			if h.onConnect != nil {
				go h.onConnect(client.id)
			}

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.doneOnce.Do(func() { close(h.done) })
			h.Shutdown()
			return nil
		}
	}
}

// registerClient hands client to Run. It reports false when the hub has stopped.
func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// unregisterClient hands client to Run for removal. After Run has returned,
// Shutdown has already dropped every client, so there is nothing to do.
func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	log.Printf("[ws] client connected: %s (total: %d)", client.id, len(h.clients))
}

// removeClient drops a client and closes its send channel. Safe to call twice.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
		close(client.send)
		log.Printf("[ws] client disconnected: %s (remaining: %d)", client.id, len(h.clients))
	}
}

// BroadcastToAll sends event to every connected client.
func (h *Hub) BroadcastToAll(event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal broadcast event %s: %v", event.Op, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Buffer full: the client is too slow, drop it.
			go h.unregisterClient(client)
		}
	}
}

// SendTo sends event to one client. Unknown ids are ignored.
func (h *Hub) SendTo(clientID string, event Event) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event %s: %v", event.Op, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		go h.unregisterClient(client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[string]*Client)
	log.Println("[ws] hub shut down, all connections closed")
}
