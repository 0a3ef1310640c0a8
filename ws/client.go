package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single socket write.
	writeWait = 10 * time.Second

	// pongWait: three missed 30s heartbeats and the client is considered gone.
	pongWait = 90 * time.Second

	maxMessageSize = 4096

	// sendBufferSize: a client whose buffer fills up is disconnected.
	sendBufferSize = 256
)

// Client is one WebSocket connection.
//
// ReadPump and WritePump run in separate goroutines; gorilla/websocket allows
// one concurrent reader and one concurrent writer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string
	send chan []byte
	mu   sync.Mutex // guards conn writes
}

// ReadPump reads client events until the connection closes, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for client %s: %v", c.id, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for client %s: %v", c.id, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from client %s: %v", c.id, err)
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for client %s: %v", c.id, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpOpenConversation:
		c.handleOpenConversation(event)

	case OpCloseConversation:
		if c.hub.onCloseConversation != nil {
			go c.hub.onCloseConversation(c.id)
		}

	default:
		log.Printf("[ws] unknown op from client %s: %s", c.id, event.Op)
	}
}

// handleOpenConversation decodes {op: "open_conversation", d: {id}} and hands
// it to the hub callback.
func (c *Client) handleOpenConversation(event Event) {
	// event.Data is `any`; round-trip through JSON to get the typed payload.
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return
	}

	var data OpenConversationData
	if err := json.Unmarshal(dataBytes, &data); err != nil {
		return
	}
	if data.ID == "" {
		log.Printf("[ws] open_conversation without id from client %s", c.id)
		return
	}

	if c.hub.onOpenConversation != nil {
		go c.hub.onOpenConversation(c.id, data.ID)
	}
}

func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event for client %s: %v", c.id, err)
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("[ws] send buffer full for client %s, dropping connection", c.id)
		go c.hub.unregisterClient(c)
	}
}

// WritePump writes queued events to the socket until the hub closes send.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
