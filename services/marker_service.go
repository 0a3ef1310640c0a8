package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/repository"
	"github.com/conectabot/inbox/ws"
)

// MarkerDetacher is called after a marker is deleted so in-memory
// conversations drop it. ConversationService satisfies it.
type MarkerDetacher interface {
	DetachMarker(markerID string)
}

// MarkerService manages locally defined conversation markers.
type MarkerService interface {
	List(ctx context.Context) ([]models.Marker, error)
	Create(ctx context.Context, req *models.CreateMarkerRequest) (*models.Marker, error)
	// Delete removes the marker and unassigns it from every conversation.
	Delete(ctx context.Context, id string) error
}

type markerService struct {
	db         *sql.DB
	markerRepo repository.MarkerRepository
	detacher   MarkerDetacher
	hub        ws.EventPublisher
}

// NewMarkerService creates the MarkerService.
func NewMarkerService(
	db *sql.DB,
	markerRepo repository.MarkerRepository,
	detacher MarkerDetacher,
	hub ws.EventPublisher,
) MarkerService {
	return &markerService{
		db:         db,
		markerRepo: markerRepo,
		detacher:   detacher,
		hub:        hub,
	}
}

func (s *markerService) List(ctx context.Context) ([]models.Marker, error) {
	return s.markerRepo.List(ctx)
}

func (s *markerService) Create(ctx context.Context, req *models.CreateMarkerRequest) (*models.Marker, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	marker := &models.Marker{
		Name:  req.Name,
		Color: req.Color,
	}
	if err := s.markerRepo.Create(ctx, marker); err != nil {
		return nil, err
	}

	s.broadcastMarkers(ctx)
	return marker, nil
}

// Delete removes the marker row and every assignment in one transaction.
func (s *markerService) Delete(ctx context.Context, id string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := repository.NewSQLiteMarkerRepo(tx).Delete(ctx, id); err != nil {
			return err
		}
		return repository.NewSQLiteConversationStateRepo(tx).ClearMarker(ctx, id)
	})
	if err != nil {
		return err
	}

	s.detacher.DetachMarker(id)
	s.broadcastMarkers(ctx)
	return nil
}

func (s *markerService) broadcastMarkers(ctx context.Context) {
	markers, err := s.markerRepo.List(ctx)
	if err != nil {
		return
	}
	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpMarkersUpdated,
		Data: markers,
	})
}
