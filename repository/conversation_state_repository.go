package repository

import (
	"context"

	"github.com/conectabot/inbox/models"
)

// ConversationStateRepository persists the locally owned part of each
// conversation (update token, unread flag, marker) across restarts.
type ConversationStateRepository interface {
	List(ctx context.Context) ([]models.ConversationState, error)
	// Upsert writes token and unread flag; the marker column is left alone.
	Upsert(ctx context.Context, state models.ConversationState) error
	Delete(ctx context.Context, ids []string) error
	// SetMarker assigns a marker (nil clears it). ErrNotFound for unknown ids,
	// ErrBadRequest for a marker that does not exist.
	SetMarker(ctx context.Context, id string, markerID *string) error
	// ClearMarker removes markerID from every conversation.
	ClearMarker(ctx context.Context, markerID string) error
}
