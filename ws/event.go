// Package ws pushes engine state to connected UIs over WebSocket.
//
// Layout:
//   - Hub: tracks connections and broadcasts events
//   - Client: one connection, with a read and a write pump
//   - Event: the wire envelope in both directions
//
// Flow: a poll cycle reconciles → service publishes store_updated → Hub
// fans it out → each WritePump writes it to its socket.
package ws

// Event is one message on the socket.
//
// Seq increases for every outbound event so a UI can detect gaps.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server
const (
	OpHeartbeat         = "heartbeat"          // sent every 30s
	OpOpenConversation  = "open_conversation"  // d: {id}
	OpCloseConversation = "close_conversation" // no payload
)

// Server → Client
const (
	OpReady           = "ready"            // first event after connect: current conversations
	OpHeartbeatAck    = "heartbeat_ack"    // reply to heartbeat
	OpStoreUpdated    = "store_updated"    // d: ordered []ConversationSummary
	OpTimelineUpdated = "timeline_updated" // d: models.Timeline
	OpNotify          = "notify"           // d: models.Notification
	OpMarkersUpdated  = "markers_updated"  // d: []Marker
)

// OpenConversationData is the payload of open_conversation.
type OpenConversationData struct {
	ID string `json:"id"`
}

// ReadyData is sent to a client right after it connects.
type ReadyData struct {
	ClientID      string `json:"client_id"`
	Conversations any    `json:"conversations"`
	OpenID        string `json:"open_id,omitempty"`
}
