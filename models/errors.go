package models

import "errors"

// Validation errors. Handlers wrap them with pkg.ErrBadRequest.
var (
	errMarkerName       = errors.New("marker name is required")
	errMarkerNameLength = errors.New("marker name must be at most 32 characters")
	errMarkerColor      = errors.New("marker color must be #rrggbb")
	errMessageText      = errors.New("message text is required")
	errMessageLength    = errors.New("message text is too long")
)
