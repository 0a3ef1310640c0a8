package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/pkg/ratelimit"
	"github.com/conectabot/inbox/repository"
	"github.com/conectabot/inbox/ws"
)

type conversationFixture struct {
	db       *database.DB
	api      *fakeAPI
	hub      *recordingHub
	watcher  *fakeWatcher
	notifier *recordingNotifier
	svc      ConversationService
	markers  MarkerService
}

func newConversationFixture(t *testing.T, db *database.DB, api *fakeAPI) *conversationFixture {
	t.Helper()

	limiter := ratelimit.NewMessageRateLimiter(2, time.Minute, time.Minute)
	t.Cleanup(limiter.Close)

	f := &conversationFixture{
		db:       db,
		api:      api,
		hub:      &recordingHub{},
		watcher:  &fakeWatcher{},
		notifier: &recordingNotifier{},
	}
	markerRepo := repository.NewSQLiteMarkerRepo(db.Conn)
	f.svc = NewConversationService(
		db.Conn,
		repository.NewSQLiteConversationStateRepo(db.Conn),
		markerRepo,
		api,
		engine.NewStore(),
		f.hub,
		f.notifier,
		f.watcher,
		limiter,
	)
	f.markers = NewMarkerService(db.Conn, markerRepo, f.svc, f.hub)
	return f
}

func (f *conversationFixture) sync(t *testing.T) {
	t.Helper()
	if err := f.svc.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func (f *conversationFixture) get(t *testing.T, id string) *models.ConversationSummary {
	t.Helper()
	c, err := f.svc.Get(id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return c
}

func TestSyncNotifiesOnlyForChangedClosedConversations(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"), conv("B", "Beto", "t1", "buenas"))
	f.sync(t)

	if !f.get(t, "A").Unread || !f.get(t, "B").Unread {
		t.Error("first sighting must be unread")
	}
	if got := f.notifier.take(); len(got) != 0 {
		t.Errorf("first pass notified: %v", got)
	}

	if _, err := f.svc.Open(ctx, "A"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.get(t, "A").Unread {
		t.Error("Open must mark read")
	}
	if f.watcher.watched != "A" || f.svc.OpenID() != "A" {
		t.Errorf("watched=%q open=%q, want A", f.watcher.watched, f.svc.OpenID())
	}

	api.setConversations(conv("A", "Ana", "t2", "¿y el pedido?"), conv("B", "Beto", "t2", ""))
	f.sync(t)

	got := f.notifier.take()
	if len(got) != 1 {
		t.Fatalf("notifications = %v, want one for B", got)
	}
	if got[0].ConversationID != "B" || got[0].Text != engine.FallbackNotificationText || got[0].DisplayName != "Beto" {
		t.Errorf("notification = %+v", got[0])
	}
	// The open conversation stays unread when it changes.
	if !f.get(t, "A").Unread {
		t.Error("open conversation with a new token must be unread")
	}

	// Same snapshot again: nothing fires, nothing is published.
	published := f.hub.count(ws.OpStoreUpdated)
	f.sync(t)
	if got := f.notifier.take(); len(got) != 0 {
		t.Errorf("unchanged pass notified: %v", got)
	}
	if n := f.hub.count(ws.OpStoreUpdated); n != published {
		t.Errorf("unchanged pass published store_updated (%d → %d)", published, n)
	}
}

func TestSyncFailureKeepsStore(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)

	api.setConversations(conv("A", "Ana", "t1", "hola"))
	f.sync(t)

	api.failConversations(pkg.ErrTransport)
	if err := f.svc.Sync(context.Background()); !errors.Is(err, pkg.ErrTransport) {
		t.Fatalf("Sync = %v, want ErrTransport", err)
	}
	if len(f.svc.List()) != 1 {
		t.Error("failed pass must not change the store")
	}
}

func TestRestoreCarriesLocalState(t *testing.T) {
	db := newTestDB(t)
	api := newFakeAPI()
	first := newConversationFixture(t, db, api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"), conv("B", "Beto", "t1", "hey"))
	first.sync(t)
	if _, err := first.svc.Open(ctx, "A"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Restart: a new service on the same database.
	second := newConversationFixture(t, db, api)
	if err := second.svc.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if second.get(t, "A").Unread {
		t.Error("restored A must stay read")
	}

	// B changed while the daemon was down: notified once.
	api.setConversations(conv("A", "Ana", "t1", "hola"), conv("B", "Beto", "t2", "¿sigues ahí?"))
	second.sync(t)
	second.sync(t)

	got := second.notifier.take()
	if len(got) != 1 || got[0].ConversationID != "B" {
		t.Errorf("notifications after restart = %v, want one for B", got)
	}
	if second.get(t, "A").Unread {
		t.Error("unchanged A became unread after restart")
	}
}

func TestConcurrentOpenCloseKeepsWatcherInStep(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"), conv("B", "Beto", "t1", "buenas"))
	f.sync(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			f.svc.Open(ctx, "A")
		}()
		go func() {
			defer wg.Done()
			f.svc.Open(ctx, "B")
		}()
		go func() {
			defer wg.Done()
			f.svc.Close()
		}()
	}
	wg.Wait()

	f.watcher.mu.Lock()
	watched := f.watcher.watched
	f.watcher.mu.Unlock()

	if openID := f.svc.OpenID(); watched != openID {
		t.Errorf("watching %q while open conversation is %q", watched, openID)
	}
}

func TestMarkUnreadAndClose(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"))
	f.sync(t)
	if _, err := f.svc.Open(ctx, "A"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	c, err := f.svc.MarkUnread(ctx, "A")
	if err != nil || !c.Unread {
		t.Fatalf("MarkUnread = %+v, %v", c, err)
	}

	f.svc.Close()
	if f.svc.OpenID() != "" || f.watcher.watched != "" {
		t.Error("Close must clear the open conversation")
	}

	if _, err := f.svc.Open(ctx, "Z"); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("Open(unknown) = %v, want ErrNotFound", err)
	}
}

func TestSendValidatesAndRateLimits(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"))
	f.sync(t)

	if err := f.svc.Send(ctx, "A", &models.SendMessageRequest{}); !errors.Is(err, pkg.ErrBadRequest) {
		t.Errorf("empty text = %v, want ErrBadRequest", err)
	}
	if err := f.svc.Send(ctx, "Z", &models.SendMessageRequest{Text: "hola"}); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("unknown conversation = %v, want ErrNotFound", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.Send(ctx, "A", &models.SendMessageRequest{Text: "ya va"}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if err := f.svc.Send(ctx, "A", &models.SendMessageRequest{Text: "otra"}); !errors.Is(err, pkg.ErrTooManyRequests) {
		t.Errorf("third send = %v, want ErrTooManyRequests", err)
	}

	if len(api.sent) != 2 || api.sent[0] != "A:ya va" {
		t.Errorf("sent = %v", api.sent)
	}
	if len(f.watcher.refreshed) != 2 {
		t.Errorf("timeline refreshes = %v, want 2", f.watcher.refreshed)
	}
}

func TestPauseAndResumeResync(t *testing.T) {
	api := newFakeAPI()
	f := newConversationFixture(t, newTestDB(t), api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"))
	f.sync(t)

	api.setConversations(models.RawConversation{ID: "A", DisplayName: "Ana", UpdatedAt: "t1", Status: models.StatusPaused})
	if err := f.svc.Pause(ctx, "A"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if f.get(t, "A").Status != models.StatusPaused {
		t.Error("status not refreshed after pause")
	}

	if err := f.svc.Resume(ctx, "A"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if len(api.paused) != 1 || len(api.resumed) != 1 {
		t.Errorf("paused=%v resumed=%v", api.paused, api.resumed)
	}
	if n := api.fetchCount(); n != 3 {
		t.Errorf("fetches = %d, want 3", n)
	}
}

func TestDeleteRemovesLocally(t *testing.T) {
	db := newTestDB(t)
	api := newFakeAPI()
	f := newConversationFixture(t, db, api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"), conv("B", "Beto", "t1", "hey"))
	f.sync(t)
	if _, err := f.svc.Open(ctx, "A"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := f.svc.Delete(ctx, "A"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get("A"); !errors.Is(err, pkg.ErrNotFound) {
		t.Error("A still in the store")
	}
	if f.svc.OpenID() != "" || f.watcher.unwatches != 1 {
		t.Error("deleting the open conversation must close it")
	}

	states, err := repository.NewSQLiteConversationStateRepo(db.Conn).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(states) != 1 || states[0].ID != "B" {
		t.Errorf("persisted states = %+v", states)
	}
}

func TestMarkerAssignAndDelete(t *testing.T) {
	db := newTestDB(t)
	api := newFakeAPI()
	f := newConversationFixture(t, db, api)
	ctx := context.Background()

	api.setConversations(conv("A", "Ana", "t1", "hola"))
	f.sync(t)

	vip, err := f.markers.Create(ctx, &models.CreateMarkerRequest{Name: "VIP"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if vip.Color != models.DefaultMarkerColor {
		t.Errorf("color = %q, want default", vip.Color)
	}
	if _, err := f.markers.Create(ctx, &models.CreateMarkerRequest{Name: "x", Color: "red"}); !errors.Is(err, pkg.ErrBadRequest) {
		t.Errorf("bad color = %v, want ErrBadRequest", err)
	}

	c, err := f.svc.AssignMarker(ctx, "A", &models.AssignMarkerRequest{MarkerID: vip.ID})
	if err != nil || c.Marker == nil || c.Marker.ID != vip.ID {
		t.Fatalf("AssignMarker = %+v, %v", c, err)
	}
	if _, err := f.svc.AssignMarker(ctx, "A", &models.AssignMarkerRequest{MarkerID: "nope"}); !errors.Is(err, pkg.ErrBadRequest) {
		t.Errorf("unknown marker = %v, want ErrBadRequest", err)
	}

	// A new token keeps the marker.
	api.setConversations(conv("A", "Ana", "t2", "otra"))
	f.sync(t)
	if m := f.get(t, "A").Marker; m == nil || m.ID != vip.ID {
		t.Errorf("marker lost on reconcile: %+v", m)
	}

	if err := f.markers.Delete(ctx, vip.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.get(t, "A").Marker != nil {
		t.Error("deleted marker still attached in memory")
	}
	states, _ := repository.NewSQLiteConversationStateRepo(db.Conn).List(ctx)
	if len(states) != 1 || states[0].MarkerID != nil {
		t.Errorf("deleted marker still persisted: %+v", states)
	}
	if f.hub.count(ws.OpMarkersUpdated) != 2 {
		t.Errorf("markers_updated = %d, want 2", f.hub.count(ws.OpMarkersUpdated))
	}
	if err := f.markers.Delete(ctx, vip.ID); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
