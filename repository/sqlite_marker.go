package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
)

type sqliteMarkerRepo struct {
	db database.TxQuerier
}

// NewSQLiteMarkerRepo returns the SQLite MarkerRepository.
func NewSQLiteMarkerRepo(db database.TxQuerier) MarkerRepository {
	return &sqliteMarkerRepo{db: db}
}

// Create assigns a new id and stores the marker. Names are unique.
func (r *sqliteMarkerRepo) Create(ctx context.Context, marker *models.Marker) error {
	marker.ID = uuid.NewString()
	marker.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO markers (id, name, color, created_at)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, marker.ID, marker.Name, marker.Color, marker.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: marker %q", pkg.ErrAlreadyExists, marker.Name)
		}
		return fmt.Errorf("failed to create marker: %w", err)
	}
	return nil
}

func (r *sqliteMarkerRepo) GetByID(ctx context.Context, id string) (*models.Marker, error) {
	var m models.Marker
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM markers WHERE id = ?`, id,
	).Scan(&m.ID, &m.Name, &m.Color, &m.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: marker %s", pkg.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get marker: %w", err)
	}
	return &m, nil
}

func (r *sqliteMarkerRepo) List(ctx context.Context) ([]models.Marker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM markers ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer rows.Close()

	markers := []models.Marker{}
	for rows.Next() {
		var m models.Marker
		if err := rows.Scan(&m.ID, &m.Name, &m.Color, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

func (r *sqliteMarkerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM markers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete marker: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: marker %s", pkg.ErrNotFound, id)
	}
	return nil
}
