package main

import (
	"github.com/conectabot/inbox/handlers"
	"github.com/conectabot/inbox/middleware"
	"github.com/conectabot/inbox/ws"
)

// Handlers holds the HTTP layer.
type Handlers struct {
	Health       *handlers.HealthHandler
	Conversation *handlers.ConversationHandler
	Timeline     *handlers.TimelineHandler
	Marker       *handlers.MarkerHandler
	Notification *handlers.NotificationHandler
	WS           *ws.Handler
}

func initHandlers(
	svcs *Services,
	poller handlers.PollerStats,
	hub *ws.Hub,
	authMw *middleware.AuthMiddleware,
) *Handlers {
	return &Handlers{
		Health:       handlers.NewHealthHandler(svcs.Conversation, svcs.Timeline, poller, hub),
		Conversation: handlers.NewConversationHandler(svcs.Conversation),
		Timeline:     handlers.NewTimelineHandler(svcs.Timeline),
		Marker:       handlers.NewMarkerHandler(svcs.Marker),
		Notification: handlers.NewNotificationHandler(svcs.Notifier),
		WS:           ws.NewHandler(hub, authMw),
	}
}
