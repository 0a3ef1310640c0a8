package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
)

// sqliteConversationStateRepo is the SQLite implementation of ConversationStateRepository.
type sqliteConversationStateRepo struct {
	db database.TxQuerier
}

// NewSQLiteConversationStateRepo accepts *sql.DB or *sql.Tx.
func NewSQLiteConversationStateRepo(db database.TxQuerier) ConversationStateRepository {
	return &sqliteConversationStateRepo{db: db}
}

func (r *sqliteConversationStateRepo) List(ctx context.Context) ([]models.ConversationState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, updated_at, unread, marker_id FROM conversation_states ORDER BY seen_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation states: %w", err)
	}
	defer rows.Close()

	var states []models.ConversationState
	for rows.Next() {
		var s models.ConversationState
		var markerID sql.NullString
		if err := rows.Scan(&s.ID, &s.UpdatedAt, &s.Unread, &markerID); err != nil {
			return nil, fmt.Errorf("failed to scan conversation state: %w", err)
		}
		if markerID.Valid {
			id := markerID.String
			s.MarkerID = &id
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

// Upsert uses INSERT ... ON CONFLICT so a conversation keeps its seen_at and marker.
func (r *sqliteConversationStateRepo) Upsert(ctx context.Context, state models.ConversationState) error {
	query := `
		INSERT INTO conversation_states (id, updated_at, unread)
		VALUES (?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET updated_at = excluded.updated_at,
		              unread = excluded.unread`

	if _, err := r.db.ExecContext(ctx, query, state.ID, state.UpdatedAt, state.Unread); err != nil {
		return fmt.Errorf("failed to upsert conversation state: %w", err)
	}
	return nil
}

func (r *sqliteConversationStateRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM conversation_states WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("failed to delete conversation states: %w", err)
	}
	return nil
}

func (r *sqliteConversationStateRepo) SetMarker(ctx context.Context, id string, markerID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE conversation_states SET marker_id = ? WHERE id = ?`, markerID, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: unknown marker %s", pkg.ErrBadRequest, *markerID)
		}
		return fmt.Errorf("failed to set conversation marker: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, id)
	}
	return nil
}

func (r *sqliteConversationStateRepo) ClearMarker(ctx context.Context, markerID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE conversation_states SET marker_id = NULL WHERE marker_id = ?`, markerID); err != nil {
		return fmt.Errorf("failed to clear marker: %w", err)
	}
	return nil
}
