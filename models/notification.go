package models

import (
	"fmt"
	"time"
)

// NotificationTitle is the title of every new-message notification.
const NotificationTitle = "Nuevo mensaje"

// Notification is raised when a known conversation receives new content
// and it is not the open one.
type Notification struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	DisplayName    string    `json:"display_name,omitempty"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// Title returns the notification title.
func (n Notification) Title() string {
	return NotificationTitle
}

// Body returns "{number}: {text}".
func (n Notification) Body() string {
	return fmt.Sprintf("%s: %s", n.ConversationID, n.Text)
}

// SendMessageRequest is the body of POST /api/conversations/{id}/messages.
type SendMessageRequest struct {
	Text string `json:"mensaje"`
}

// MaxMessageLength bounds outbound text. WhatsApp caps a text body at 4096.
const MaxMessageLength = 4096

// Validate checks the outbound text.
func (r *SendMessageRequest) Validate() error {
	if r.Text == "" {
		return errMessageText
	}
	if len([]rune(r.Text)) > MaxMessageLength {
		return errMessageLength
	}
	return nil
}
