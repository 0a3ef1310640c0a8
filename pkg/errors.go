// Package pkg holds utilities shared across the daemon.
// This file defines the domain-level errors.
//
// Errors are plain values created once with errors.New, so callers compare
// them by identity instead of by message text:
//
//	if errors.Is(err, pkg.ErrTransport) { ... }
package pkg

import "errors"

// Domain-level errors.
// The handler layer maps these to HTTP status codes; the poller treats the
// backend ones as "no update this cycle".
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")
	ErrBadRequest      = errors.New("bad request")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")

	// Backend taxonomy. A failed request never changes local state.
	ErrTransport            = errors.New("backend transport failure")
	ErrUnsuccessfulResponse = errors.New("backend unsuccessful response")
	ErrMalformedBody        = errors.New("backend malformed body")

	// ErrMalformedEntry marks a single snapshot entry that could not be parsed.
	// Only that entry is skipped; the rest of the batch still reconciles.
	ErrMalformedEntry = errors.New("malformed snapshot entry")
)
