package repository

import (
	"context"

	"github.com/conectabot/inbox/models"
)

// MarkerRepository stores the locally defined conversation markers.
type MarkerRepository interface {
	Create(ctx context.Context, marker *models.Marker) error
	GetByID(ctx context.Context, id string) (*models.Marker, error)
	List(ctx context.Context) ([]models.Marker, error)
	Delete(ctx context.Context, id string) error
}
