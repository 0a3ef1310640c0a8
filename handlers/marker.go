package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/services"
)

// MarkerHandler manages conversation markers.
type MarkerHandler struct {
	markerService services.MarkerService
}

// NewMarkerHandler creates the handler.
func NewMarkerHandler(markerService services.MarkerService) *MarkerHandler {
	return &MarkerHandler{markerService: markerService}
}

// List godoc
// GET /api/markers
func (h *MarkerHandler) List(w http.ResponseWriter, r *http.Request) {
	markers, err := h.markerService.List(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, markers)
}

// Create godoc
// POST /api/markers
func (h *MarkerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMarkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	marker, err := h.markerService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, marker)
}

// Delete godoc
// DELETE /api/markers/{id}
func (h *MarkerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.markerService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "marker deleted"})
}
