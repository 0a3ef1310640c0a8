package handlers

import (
	"net/http"
	"strconv"

	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/services"
)

// NotificationHandler exposes the notification history.
type NotificationHandler struct {
	notifier services.Notifier
}

// NewNotificationHandler creates the handler.
func NewNotificationHandler(notifier services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List godoc
// GET /api/notifications?limit=50
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	notifications, err := h.notifier.Recent(r.Context(), limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, notifications)
}
