package main

import (
	"net/http"

	"github.com/conectabot/inbox/middleware"
)

// initRoutes binds every endpoint to mux.
//
// Literal paths such as /api/conversations/close share a prefix with
// /api/conversations/{id}; the router prefers the more specific pattern.
func initRoutes(mux *http.ServeMux, h *Handlers, authMw *middleware.AuthMiddleware) {
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}

	// Health
	mux.HandleFunc("GET /api/health", h.Health.Get)

	// Conversations
	mux.Handle("GET /api/conversations", auth(h.Conversation.List))
	mux.Handle("POST /api/conversations/refresh", auth(h.Conversation.Refresh))
	mux.Handle("POST /api/conversations/close", auth(h.Conversation.Close))
	mux.Handle("GET /api/conversations/{id}", auth(h.Conversation.Get))
	mux.Handle("DELETE /api/conversations/{id}", auth(h.Conversation.Delete))
	mux.Handle("POST /api/conversations/{id}/open", auth(h.Conversation.Open))
	mux.Handle("POST /api/conversations/{id}/unread", auth(h.Conversation.MarkUnread))
	mux.Handle("POST /api/conversations/{id}/messages", auth(h.Conversation.Send))
	mux.Handle("POST /api/conversations/{id}/pause", auth(h.Conversation.Pause))
	mux.Handle("POST /api/conversations/{id}/resume", auth(h.Conversation.Resume))
	mux.Handle("PUT /api/conversations/{id}/marker", auth(h.Conversation.AssignMarker))
	mux.Handle("GET /api/conversations/{id}/timeline", auth(h.Timeline.Get))

	// Markers
	mux.Handle("GET /api/markers", auth(h.Marker.List))
	mux.Handle("POST /api/markers", auth(h.Marker.Create))
	mux.Handle("DELETE /api/markers/{id}", auth(h.Marker.Delete))

	// Notifications
	mux.Handle("GET /api/notifications", auth(h.Notification.List))

	// WebSocket checks ?token= itself.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
