package ws

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenValidator checks the UI token passed as ?token=.
// Defined here so ws does not import middleware.
type TokenValidator interface {
	ValidateUIToken(token string) bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already restricted by the CORS layer and the UI token.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades /ws requests.
type Handler struct {
	hub            *Hub
	tokenValidator TokenValidator
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, tokenValidator TokenValidator) *Handler {
	return &Handler{
		hub:            hub,
		tokenValidator: tokenValidator,
	}
}

// HandleConnection validates ?token=, upgrades, registers the client and
// blocks in ReadPump until the connection closes.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if !h.tokenValidator.ValidateUIToken(r.URL.Query().Get("token")) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		id:   uuid.New().String(),
		send: make(chan []byte, sendBufferSize),
	}

	if !h.hub.registerClient(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
