package repository

import (
	"context"
	"time"

	"github.com/conectabot/inbox/models"
)

// NotificationLogRepository keeps a history of raised notifications.
type NotificationLogRepository interface {
	Append(ctx context.Context, n models.Notification) error
	Recent(ctx context.Context, limit int) ([]models.Notification, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
