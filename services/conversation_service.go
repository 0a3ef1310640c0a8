package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/conectabot/inbox/backend"
	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/pkg/ratelimit"
	"github.com/conectabot/inbox/repository"
	"github.com/conectabot/inbox/ws"
)

// ConversationService owns the conversation store.
//
// Sync runs one reconcile pass; every other write (open, unread, marker,
// delete) is a copy-on-write edit of the current snapshot. All writes are
// serialized, persisted, then published with a single Store.Swap.
type ConversationService interface {
	// Restore seeds the store from persisted local state. Call once at startup.
	Restore(ctx context.Context) error

	// Sync fetches the snapshot and reconciles it. Concurrent calls share one pass.
	Sync(ctx context.Context) error

	List() []models.ConversationSummary
	Get(id string) (*models.ConversationSummary, error)

	// Open marks id read, makes it the open conversation and starts message polling.
	Open(ctx context.Context, id string) (*models.ConversationSummary, error)
	// Close clears the open conversation and stops message polling.
	Close()
	OpenID() string

	MarkUnread(ctx context.Context, id string) (*models.ConversationSummary, error)

	Send(ctx context.Context, id string, req *models.SendMessageRequest) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	// AssignMarker sets (or with an empty MarkerID clears) the marker of id.
	AssignMarker(ctx context.Context, id string, req *models.AssignMarkerRequest) (*models.ConversationSummary, error)
	// DetachMarker drops a deleted marker from the in-memory store.
	DetachMarker(markerID string)
}

type conversationService struct {
	db         *sql.DB
	stateRepo  repository.ConversationStateRepository
	markerRepo repository.MarkerRepository
	api        backend.API
	store      *engine.Store
	hub        ws.EventPublisher
	notifier   Notifier
	watcher    ConversationWatcher // called with mu held
	limiter    *ratelimit.MessageRateLimiter

	group singleflight.Group

	// mu serializes store writers. openID is read by Reconcile under mu.
	mu     sync.Mutex
	openID string
}

// NewConversationService creates the ConversationService.
//
// db is used for WithTx when a pass persists several rows; stateRepo and
// markerRepo are the non-transactional repositories.
func NewConversationService(
	db *sql.DB,
	stateRepo repository.ConversationStateRepository,
	markerRepo repository.MarkerRepository,
	api backend.API,
	store *engine.Store,
	hub ws.EventPublisher,
	notifier Notifier,
	watcher ConversationWatcher,
	limiter *ratelimit.MessageRateLimiter,
) ConversationService {
	return &conversationService{
		db:         db,
		stateRepo:  stateRepo,
		markerRepo: markerRepo,
		api:        api,
		store:      store,
		hub:        hub,
		notifier:   notifier,
		watcher:    watcher,
		limiter:    limiter,
	}
}

// Restore rebuilds the store from conversation_states so a restart does not
// treat every conversation as a first sighting. Server fields stay empty
// until the first pass fills them.
func (s *conversationService) Restore(ctx context.Context) error {
	states, err := s.stateRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load conversation states: %w", err)
	}
	markers, err := s.markerRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load markers: %w", err)
	}

	byID := make(map[string]*models.Marker, len(markers))
	for i := range markers {
		byID[markers[i].ID] = &markers[i]
	}

	items := make([]models.ConversationSummary, 0, len(states))
	for _, st := range states {
		c := models.ConversationSummary{
			ID:          st.ID,
			DisplayName: st.ID,
			UpdatedAt:   st.UpdatedAt,
			Status:      models.StatusActive,
			Unread:      st.Unread,
		}
		if st.MarkerID != nil {
			c.Marker = byID[*st.MarkerID]
		}
		items = append(items, c)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt > items[j].UpdatedAt
	})

	s.mu.Lock()
	s.store.Swap(engine.NewSnapshot(items))
	s.mu.Unlock()

	log.Printf("[engine] restored %d conversations", len(items))
	return nil
}

func (s *conversationService) Sync(ctx context.Context) error {
	_, err, _ := s.group.Do("sync", func() (any, error) {
		return nil, s.sync(ctx)
	})
	return err
}

// sync is one reconcile pass. A failed fetch or write leaves the store as it
// was, so the same transition is reconciled (and notified) on the next pass.
func (s *conversationService) sync(ctx context.Context) error {
	entries, skipped, err := s.api.FetchConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch conversations: %w", err)
	}
	for _, e := range skipped {
		log.Printf("[engine] skipped snapshot entry: %v", e)
	}

	s.mu.Lock()
	prev := s.store.Load()
	result := engine.Reconcile(prev, entries, s.openID)
	if err := s.persist(ctx, prev, result.Next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.store.Swap(result.Next)
	s.mu.Unlock()

	if !prev.Equal(result.Next) {
		s.publish(result.Next)
	}

	if len(result.Notifications) > 0 {
		for i := range result.Notifications {
			if c, ok := result.Next.Get(result.Notifications[i].ConversationID); ok {
				result.Notifications[i].DisplayName = c.DisplayName
			}
		}
		s.notifier.Dispatch(ctx, result.Notifications)
	}
	return nil
}

// persist writes the locally owned fields that differ between prev and next.
// Must be called with mu held.
func (s *conversationService) persist(ctx context.Context, prev, next *engine.Snapshot) error {
	changed, removed := engine.Diff(prev, next)
	if len(changed) == 0 && len(removed) == 0 {
		return nil
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txStates := repository.NewSQLiteConversationStateRepo(tx)

		for _, c := range changed {
			if err := txStates.Upsert(ctx, models.ConversationState{
				ID:        c.ID,
				UpdatedAt: c.UpdatedAt,
				Unread:    c.Unread,
			}); err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			if err := txStates.Delete(ctx, removed); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *conversationService) publish(snap *engine.Snapshot) {
	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpStoreUpdated,
		Data: snap.List(),
	})
}

// edit applies fn to conversation id, persists and publishes the result.
// onCommit, if set, runs under mu right after the swap.
func (s *conversationService) edit(ctx context.Context, id string, fn func(c *models.ConversationSummary), onCommit func()) (*models.ConversationSummary, error) {
	s.mu.Lock()
	prev := s.store.Load()
	next, ok := prev.With(id, fn)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, id)
	}
	if err := s.persist(ctx, prev, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.store.Swap(next)
	if onCommit != nil {
		onCommit()
	}
	s.mu.Unlock()

	if !prev.Equal(next) {
		s.publish(next)
	}
	c, _ := next.Get(id)
	return &c, nil
}

func (s *conversationService) List() []models.ConversationSummary {
	return s.store.Load().List()
}

func (s *conversationService) Get(id string) (*models.ConversationSummary, error) {
	c, ok := s.store.Load().Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, id)
	}
	return &c, nil
}

func (s *conversationService) Open(ctx context.Context, id string) (*models.ConversationSummary, error) {
	return s.edit(ctx, id, func(c *models.ConversationSummary) {
		c.Unread = false
	}, func() {
		s.openID = id
		s.watcher.Watch(id)
	})
}

// Close holds mu across Unwatch so the watched conversation always follows openID.
func (s *conversationService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openID = ""
	s.watcher.Unwatch()
}

func (s *conversationService) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

func (s *conversationService) MarkUnread(ctx context.Context, id string) (*models.ConversationSummary, error) {
	return s.edit(ctx, id, func(c *models.ConversationSummary) {
		c.Unread = true
	}, nil)
}

// Send delivers text to the conversation, rate limited per conversation.
func (s *conversationService) Send(ctx context.Context, id string, req *models.SendMessageRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	if _, err := s.Get(id); err != nil {
		return err
	}
	if !s.limiter.Allow(id) {
		return fmt.Errorf("%w: retry in %ds", pkg.ErrTooManyRequests, s.limiter.CooldownSeconds(id))
	}

	if err := s.api.SendMessage(ctx, id, req.Text); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", id, err)
	}

	s.watcher.Refresh(ctx, id)
	return nil
}

func (s *conversationService) Pause(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.api.Pause(ctx, id); err != nil {
		return fmt.Errorf("failed to pause %s: %w", id, err)
	}
	s.syncAfterAction(ctx)
	return nil
}

func (s *conversationService) Resume(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.api.Resume(ctx, id); err != nil {
		return fmt.Errorf("failed to resume %s: %w", id, err)
	}
	s.syncAfterAction(ctx)
	return nil
}

// syncAfterAction picks up the server-side status change without waiting for
// the next poll. A failure here is only logged; the poller will retry.
func (s *conversationService) syncAfterAction(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		log.Printf("[engine] sync after action failed: %v", err)
	}
}

// Delete removes the conversation upstream (two-step), then locally.
func (s *conversationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.api.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	s.mu.Lock()
	prev := s.store.Load()
	next, ok := prev.Without(id)
	if ok {
		if err := s.persist(ctx, prev, next); err != nil {
			s.mu.Unlock()
			return err
		}
		s.store.Swap(next)
	}
	if s.openID == id {
		s.openID = ""
		s.watcher.Unwatch()
	}
	s.mu.Unlock()

	if ok {
		s.publish(next)
	}
	return nil
}

func (s *conversationService) AssignMarker(ctx context.Context, id string, req *models.AssignMarkerRequest) (*models.ConversationSummary, error) {
	var marker *models.Marker
	if req.MarkerID != "" {
		m, err := s.markerRepo.GetByID(ctx, req.MarkerID)
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown marker %s", pkg.ErrBadRequest, req.MarkerID)
			}
			return nil, err
		}
		marker = m
	}

	s.mu.Lock()
	prev := s.store.Load()
	next, ok := prev.With(id, func(c *models.ConversationSummary) {
		c.Marker = marker
	})
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, id)
	}

	var markerID *string
	if marker != nil {
		markerID = &marker.ID
	}
	if err := s.stateRepo.SetMarker(ctx, id, markerID); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.store.Swap(next)
	s.mu.Unlock()

	if !prev.Equal(next) {
		s.publish(next)
	}
	c, _ := next.Get(id)
	return &c, nil
}

func (s *conversationService) DetachMarker(markerID string) {
	s.mu.Lock()
	prev := s.store.Load()
	next := prev.Map(func(c *models.ConversationSummary) {
		if c.Marker != nil && c.Marker.ID == markerID {
			c.Marker = nil
		}
	})
	s.store.Swap(next)
	s.mu.Unlock()

	if !prev.Equal(next) {
		s.publish(next)
	}
}
