// Package handlers holds the local UI API handlers.
//
// Handlers are thin: decode the request, call one service method, write the
// pkg.APIResponse envelope.
package handlers

import (
	"net/http"

	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/services"
	"github.com/conectabot/inbox/ws"
)

// PollerStats is the part of engine.Poller the health check reads.
type PollerStats interface {
	ConsecutiveFailures() int64
	Cycles() int64
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status              string `json:"status"`
	Conversations       int    `json:"conversations"`
	OpenConversation    string `json:"open_conversation,omitempty"`
	WatchedConversation string `json:"watched_conversation,omitempty"`
	Clients             int    `json:"clients"`
	Cycles              int64  `json:"cycles"`
	ConsecutiveFailures int64  `json:"consecutive_failures"`
}

// HealthHandler reports whether the sync loop is keeping up.
type HealthHandler struct {
	conversationService services.ConversationService
	timelineService     services.TimelineService
	poller              PollerStats
	hub                 ws.EventPublisher
}

// NewHealthHandler creates the handler.
func NewHealthHandler(
	conversationService services.ConversationService,
	timelineService services.TimelineService,
	poller PollerStats,
	hub ws.EventPublisher,
) *HealthHandler {
	return &HealthHandler{
		conversationService: conversationService,
		timelineService:     timelineService,
		poller:              poller,
		hub:                 hub,
	}
}

// Get godoc
// GET /api/health
// Status is "degraded" while the conversation poller keeps failing.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:              "ok",
		Conversations:       len(h.conversationService.List()),
		OpenConversation:    h.conversationService.OpenID(),
		WatchedConversation: h.timelineService.WatchedID(),
		Clients:             h.hub.ClientCount(),
		Cycles:              h.poller.Cycles(),
		ConsecutiveFailures: h.poller.ConsecutiveFailures(),
	}
	if resp.ConsecutiveFailures > 0 {
		resp.Status = "degraded"
	}

	pkg.JSON(w, http.StatusOK, resp)
}
