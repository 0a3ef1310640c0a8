package services

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/conectabot/inbox/backend"
	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg/cache"
	"github.com/conectabot/inbox/ws"
)

// timelineCacheTTL keeps the last built timeline of recently opened
// conversations so reopening one renders before the first poll returns.
const timelineCacheTTL = 5 * time.Minute

// ConversationWatcher is the part of TimelineService the conversation
// service drives when the open conversation changes.
type ConversationWatcher interface {
	Watch(id string)
	Unwatch()
	Refresh(ctx context.Context, id string)
}

// TimelineService polls the messages of the open conversation and publishes
// its day-grouped timeline.
type TimelineService interface {
	ConversationWatcher

	// Get returns the timeline of id, from cache or by fetching once.
	Get(ctx context.Context, id string) (*models.Timeline, error)

	// WatchedID returns the conversation whose messages are being polled.
	WatchedID() string

	// Run holds the lifetime of message polling. When ctx ends, the active
	// poller is stopped and Run returns nil.
	Run(ctx context.Context) error

	// Close releases the cache.
	Close()
}

type timelineService struct {
	api       backend.API
	clock     clock.Clock
	interval  time.Duration
	formatter engine.DayFormatter
	hub       ws.EventPublisher
	cache     *cache.TTLCache[string, *models.Timeline]

	// At most one message poller runs. mu guards the fields below.
	mu        sync.Mutex
	parent    context.Context
	watchedID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewTimelineService creates a TimelineService. A nil clk uses the wall clock.
func NewTimelineService(
	api backend.API,
	clk clock.Clock,
	interval time.Duration,
	formatter engine.DayFormatter,
	hub ws.EventPublisher,
) TimelineService {
	if clk == nil {
		clk = clock.New()
	}
	return &timelineService{
		api:       api,
		clock:     clk,
		interval:  interval,
		formatter: formatter,
		hub:       hub,
		cache:     cache.NewWithClock[string, *models.Timeline](clk, timelineCacheTTL, time.Minute),
		parent:    context.Background(),
	}
}

// Watch starts polling id, replacing the previous message poller.
// Watching the already watched id is a no-op.
func (s *timelineService) Watch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchedID == id && s.cancel != nil {
		return
	}
	s.stopLocked()

	ctx, cancel := context.WithCancel(s.parent)
	done := make(chan struct{})
	poller := engine.NewPoller("messages:"+id, s.clock, s.interval, func(ctx context.Context) error {
		return s.refresh(ctx, id)
	})

	go func() {
		defer close(done)
		poller.Run(ctx)
	}()

	s.watchedID = id
	s.cancel = cancel
	s.done = done
}

// Unwatch stops message polling.
func (s *timelineService) Unwatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked cancels the active poller and waits for it to exit.
func (s *timelineService) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.watchedID = ""
}

func (s *timelineService) WatchedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchedID
}

// Refresh rebuilds id's timeline now if it is the watched conversation.
func (s *timelineService) Refresh(ctx context.Context, id string) {
	if s.WatchedID() != id {
		return
	}
	if err := s.refresh(ctx, id); err != nil {
		log.Printf("[timeline] refresh of %s failed: %v", id, err)
	}
}

func (s *timelineService) Get(ctx context.Context, id string) (*models.Timeline, error) {
	if tl, ok := s.cache.Get(id); ok {
		return tl, nil
	}

	tl, err := s.build(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, tl)
	return tl, nil
}

func (s *timelineService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.parent = ctx
	s.mu.Unlock()

	<-ctx.Done()

	s.Unwatch()
	return nil
}

func (s *timelineService) Close() {
	s.cache.Close()
}

// refresh is one message poll cycle: fetch, build, publish on change.
func (s *timelineService) refresh(ctx context.Context, id string) error {
	tl, err := s.build(ctx, id)
	if err != nil {
		return err
	}

	// The conversation was switched while fetching; drop the stale result.
	if ctx.Err() != nil {
		return nil
	}

	if prev, ok := s.cache.Get(id); ok && reflect.DeepEqual(prev.Rows, tl.Rows) {
		return nil
	}
	s.cache.Set(id, tl)

	s.hub.BroadcastToAll(ws.Event{
		Op:   ws.OpTimelineUpdated,
		Data: tl,
	})
	return nil
}

func (s *timelineService) build(ctx context.Context, id string) (*models.Timeline, error) {
	messages, skipped, err := s.api.FetchMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages of %s: %w", id, err)
	}
	for _, e := range skipped {
		log.Printf("[timeline] skipped message of %s: %v", id, e)
	}

	return &models.Timeline{
		ConversationID: id,
		Rows:           engine.BuildRows(messages, s.formatter),
	}, nil
}
