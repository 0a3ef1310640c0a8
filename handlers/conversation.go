package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/services"
)

// ConversationHandler serves the conversation list and per-conversation actions.
type ConversationHandler struct {
	conversationService services.ConversationService
}

// NewConversationHandler creates the handler.
func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// GET /api/conversations
// Ordered by update token, newest first.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.conversationService.List())
}

// Refresh godoc
// POST /api/conversations/refresh
// Runs a reconcile pass now and returns the resulting list.
func (h *ConversationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationService.Sync(r.Context()); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, h.conversationService.List())
}

// Get godoc
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversationService.Get(r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, c)
}

// Open godoc
// POST /api/conversations/{id}/open
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversationService.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, c)
}

// Close godoc
// POST /api/conversations/close
func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.conversationService.Close()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "conversation closed"})
}

// MarkUnread godoc
// POST /api/conversations/{id}/unread
func (h *ConversationHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversationService.MarkUnread(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, c)
}

// Send godoc
// POST /api/conversations/{id}/messages
// Body: {"mensaje": "..."}
func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.conversationService.Send(r.Context(), r.PathValue("id"), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusAccepted, map[string]string{"message": "message sent"})
}

// Pause godoc
// POST /api/conversations/{id}/pause
// Hands the conversation to a human: the bot stops answering.
func (h *ConversationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationService.Pause(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "conversation paused"})
}

// Resume godoc
// POST /api/conversations/{id}/resume
func (h *ConversationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationService.Resume(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "conversation resumed"})
}

// Delete godoc
// DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.conversationService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "conversation deleted"})
}

// AssignMarker godoc
// PUT /api/conversations/{id}/marker
// Body: {"marker_id": "..."}; an empty id clears the marker.
func (h *ConversationHandler) AssignMarker(w http.ResponseWriter, r *http.Request) {
	var req models.AssignMarkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.conversationService.AssignMarker(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, c)
}
