package handlers

import (
	"net/http"

	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/services"
)

// TimelineHandler serves day-grouped message timelines.
type TimelineHandler struct {
	timelineService services.TimelineService
}

// NewTimelineHandler creates the handler.
func NewTimelineHandler(timelineService services.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

// Get godoc
// GET /api/conversations/{id}/timeline
func (h *TimelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	tl, err := h.timelineService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, tl)
}
