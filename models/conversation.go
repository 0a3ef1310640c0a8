package models

import "strings"

// ConversationStatus is the server-controlled state of a conversation.
type ConversationStatus string

const (
	StatusActive ConversationStatus = "active"
	StatusPaused ConversationStatus = "paused"
)

// ParseConversationStatus maps the backend's status value.
// The backend is not consistent about language; anything unknown is active.
func ParseConversationStatus(raw string) ConversationStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paused", "pausado", "pausada", "pause":
		return StatusPaused
	default:
		return StatusActive
	}
}

// ConversationSummary is one entry of the conversation list, keyed by phone number.
//
// DisplayName, LastMessageText, UpdatedAt and Status come from the server and
// are overwritten on every reconcile pass. Unread and Marker are owned by this
// device and never sent to the server.
type ConversationSummary struct {
	ID              string             `json:"id"`
	DisplayName     string             `json:"display_name"`
	LastMessageText string             `json:"last_message_text"`
	UpdatedAt       string             `json:"updated_at"`
	Status          ConversationStatus `json:"status"`
	Unread          bool               `json:"unread"`
	Marker          *Marker            `json:"marker,omitempty"`
}

// RawConversation is the typed parse of one snapshot entry.
//
// UpdatedAt is an opaque change token: compared for equality, sorted
// lexically for display, never parsed as a time.
type RawConversation struct {
	ID              string
	DisplayName     string
	LastMessageText string
	UpdatedAt       string
	Status          ConversationStatus
}

// ConversationState is the locally owned part of a conversation, as persisted.
type ConversationState struct {
	ID        string  `json:"id"`
	UpdatedAt string  `json:"updated_at"`
	Unread    bool    `json:"unread"`
	MarkerID  *string `json:"marker_id"`
}
