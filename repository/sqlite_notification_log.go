package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/models"
)

type sqliteNotificationLogRepo struct {
	db database.TxQuerier
}

// NewSQLiteNotificationLogRepo returns the SQLite NotificationLogRepository.
func NewSQLiteNotificationLogRepo(db database.TxQuerier) NotificationLogRepository {
	return &sqliteNotificationLogRepo{db: db}
}

func (r *sqliteNotificationLogRepo) Append(ctx context.Context, n models.Notification) error {
	query := `
		INSERT INTO notification_log (id, conversation_id, title, body, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		n.ID, n.ConversationID, n.Title(), n.Text, n.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

// Recent returns the newest notifications first.
func (r *sqliteNotificationLogRepo) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, body, created_at
		FROM notification_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.ConversationID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries created before cutoff.
func (r *sqliteNotificationLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notification_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return result.RowsAffected()
}
