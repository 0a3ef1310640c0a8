package models

// DeliveryStatus is the optional delivery state of an outbound message.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
)

// MessageUI is one chat message inside a conversation.
//
// Immutable once fetched: a re-fetch replaces the whole list.
type MessageUI struct {
	Text           string         `json:"text"`
	RawTimestamp   string         `json:"raw_timestamp"`
	IsFromCustomer bool           `json:"is_from_customer"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
}

// ChatRowKind tags a ChatRow.
type ChatRowKind string

const (
	RowDateHeader ChatRowKind = "date_header"
	RowMessage    ChatRowKind = "message"
)

// ChatRow is either a day header or a message.
// Derived from the message list, never stored.
type ChatRow struct {
	Kind    ChatRowKind `json:"kind"`
	Label   string      `json:"label,omitempty"`
	Message *MessageUI  `json:"message,omitempty"`
}

// DateHeader builds a day header row.
func DateHeader(label string) ChatRow {
	return ChatRow{Kind: RowDateHeader, Label: label}
}

// MessageRow builds a message row.
func MessageRow(m MessageUI) ChatRow {
	return ChatRow{Kind: RowMessage, Message: &m}
}

// Timeline is the last built row list of a conversation.
type Timeline struct {
	ConversationID string    `json:"conversation_id"`
	Rows           []ChatRow `json:"rows"`
}
