package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/ws"
)

// stubConversations implements services.ConversationService over a fixed list.
type stubConversations struct {
	items   []models.ConversationSummary
	openID  string
	sendErr error
	sent    []string
}

func (s *stubConversations) Restore(ctx context.Context) error { return nil }
func (s *stubConversations) Sync(ctx context.Context) error    { return nil }

func (s *stubConversations) List() []models.ConversationSummary { return s.items }

func (s *stubConversations) Get(id string) (*models.ConversationSummary, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			c := s.items[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, id)
}

func (s *stubConversations) Open(ctx context.Context, id string) (*models.ConversationSummary, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	s.openID = id
	c.Unread = false
	return c, nil
}

func (s *stubConversations) Close()         { s.openID = "" }
func (s *stubConversations) OpenID() string { return s.openID }

func (s *stubConversations) MarkUnread(ctx context.Context, id string) (*models.ConversationSummary, error) {
	return s.Get(id)
}

func (s *stubConversations) Send(ctx context.Context, id string, req *models.SendMessageRequest) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}
	s.sent = append(s.sent, id+":"+req.Text)
	return nil
}

func (s *stubConversations) Pause(ctx context.Context, id string) error  { return nil }
func (s *stubConversations) Resume(ctx context.Context, id string) error { return nil }

func (s *stubConversations) Delete(ctx context.Context, id string) error {
	return fmt.Errorf("failed to delete %s: %w", id, pkg.ErrUnsuccessfulResponse)
}

func (s *stubConversations) AssignMarker(ctx context.Context, id string, req *models.AssignMarkerRequest) (*models.ConversationSummary, error) {
	return s.Get(id)
}

func (s *stubConversations) DetachMarker(markerID string) {}

type stubNotifier struct {
	lastLimit int
}

func (n *stubNotifier) Dispatch(ctx context.Context, notifications []models.Notification) {}

func (n *stubNotifier) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	n.lastLimit = limit
	return []models.Notification{{ID: "1", ConversationID: "521", Text: "hola"}}, nil
}

func (n *stubNotifier) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

type stubPoller struct{ failures int64 }

func (p stubPoller) ConsecutiveFailures() int64 { return p.failures }
func (p stubPoller) Cycles() int64              { return 7 }

type stubTimeline struct{}

func (stubTimeline) Watch(id string)                        {}
func (stubTimeline) Unwatch()                               {}
func (stubTimeline) Refresh(ctx context.Context, id string) {}
func (stubTimeline) WatchedID() string                      { return "A" }
func (stubTimeline) Run(ctx context.Context) error          { return nil }
func (stubTimeline) Close()                                 {}

func (stubTimeline) Get(ctx context.Context, id string) (*models.Timeline, error) {
	return &models.Timeline{ConversationID: id}, nil
}

type stubHub struct{}

func (stubHub) BroadcastToAll(event ws.Event) {}
func (stubHub) ClientCount() int             { return 2 }

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) pkg.APIResponse {
	t.Helper()
	var resp struct {
		pkg.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return resp.APIResponse
}

func newMux(conv *stubConversations, notifier *stubNotifier) *http.ServeMux {
	h := NewConversationHandler(conv)
	n := NewNotificationHandler(notifier)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", h.List)
	mux.HandleFunc("POST /api/conversations/{id}/open", h.Open)
	mux.HandleFunc("POST /api/conversations/{id}/messages", h.Send)
	mux.HandleFunc("DELETE /api/conversations/{id}", h.Delete)
	mux.HandleFunc("GET /api/notifications", n.List)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestConversationRoutes(t *testing.T) {
	conv := &stubConversations{items: []models.ConversationSummary{
		{ID: "A", DisplayName: "Ana", UpdatedAt: "t2", Unread: true},
		{ID: "B", DisplayName: "Beto", UpdatedAt: "t1"},
	}}
	mux := newMux(conv, &stubNotifier{})

	w := do(mux, http.MethodGet, "/api/conversations", "")
	var list []models.ConversationSummary
	if resp := decode(t, w, &list); w.Code != http.StatusOK || !resp.Success || len(list) != 2 || list[0].ID != "A" {
		t.Errorf("list = %d %+v", w.Code, list)
	}

	w = do(mux, http.MethodPost, "/api/conversations/A/open", "")
	var opened models.ConversationSummary
	decode(t, w, &opened)
	if w.Code != http.StatusOK || opened.Unread || conv.openID != "A" {
		t.Errorf("open = %d %+v", w.Code, opened)
	}

	w = do(mux, http.MethodPost, "/api/conversations/Z/open", "")
	if resp := decode(t, w, nil); w.Code != http.StatusNotFound || resp.Success {
		t.Errorf("open unknown = %d", w.Code)
	}

	w = do(mux, http.MethodDelete, "/api/conversations/A", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("backend failure = %d, want 502", w.Code)
	}
}

func TestSendRoute(t *testing.T) {
	conv := &stubConversations{items: []models.ConversationSummary{{ID: "A"}}}
	mux := newMux(conv, &stubNotifier{})

	tests := []struct {
		name    string
		body    string
		sendErr error
		want    int
	}{
		{"ok", `{"mensaje":"hola"}`, nil, http.StatusAccepted},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"empty", `{"mensaje":""}`, nil, http.StatusBadRequest},
		{"throttled", `{"mensaje":"hola"}`, fmt.Errorf("%w: retry in 30s", pkg.ErrTooManyRequests), http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv.sendErr = tt.sendErr
			w := do(mux, http.MethodPost, "/api/conversations/A/messages", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
	if len(conv.sent) != 1 || conv.sent[0] != "A:hola" {
		t.Errorf("sent = %v", conv.sent)
	}
}

func TestNotificationLimit(t *testing.T) {
	notifier := &stubNotifier{}
	mux := newMux(&stubConversations{}, notifier)

	if w := do(mux, http.MethodGet, "/api/notifications?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit = %d", w.Code)
	}

	w := do(mux, http.MethodGet, "/api/notifications?limit=5", "")
	var list []models.Notification
	decode(t, w, &list)
	if w.Code != http.StatusOK || notifier.lastLimit != 5 || len(list) != 1 {
		t.Errorf("list = %d limit=%d %+v", w.Code, notifier.lastLimit, list)
	}
}

func TestHealth(t *testing.T) {
	conv := &stubConversations{items: []models.ConversationSummary{{ID: "A"}}, openID: "A"}

	tests := []struct {
		name     string
		failures int64
		want     string
	}{
		{"ok", 0, "ok"},
		{"degraded", 3, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(conv, stubTimeline{}, stubPoller{failures: tt.failures}, stubHub{})
			w := httptest.NewRecorder()
			h.Get(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			var got HealthResponse
			decode(t, w, &got)
			if got.Status != tt.want || got.Conversations != 1 || got.OpenConversation != "A" ||
				got.WatchedConversation != "A" || got.Clients != 2 || got.Cycles != 7 {
				t.Errorf("health = %+v", got)
			}
		})
	}
}
