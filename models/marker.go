package models

import "time"

// Marker is a locally defined label attached to conversations.
// It never leaves this device.
type Marker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMarkerRequest is the body of POST /api/markers.
type CreateMarkerRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validate checks the request and fills the default color.
func (r *CreateMarkerRequest) Validate() error {
	if r.Name == "" {
		return errMarkerName
	}
	if len(r.Name) > 32 {
		return errMarkerNameLength
	}
	if r.Color == "" {
		r.Color = DefaultMarkerColor
		return nil
	}
	if !isHexColor(r.Color) {
		return errMarkerColor
	}
	return nil
}

// AssignMarkerRequest is the body of PUT /api/conversations/{id}/marker.
// An empty MarkerID clears the marker.
type AssignMarkerRequest struct {
	MarkerID string `json:"marker_id"`
}

// DefaultMarkerColor is used when a marker is created without a color.
const DefaultMarkerColor = "#9e9e9e"

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
