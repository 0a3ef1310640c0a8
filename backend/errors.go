package backend

import (
	"fmt"

	"github.com/conectabot/inbox/pkg"
)

// StatusError is a non-2xx response from the backend.
// It matches pkg.ErrUnsuccessfulResponse with errors.Is.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string // first bytes of the response body, for logs
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s %s returned %d", pkg.ErrUnsuccessfulResponse, e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s: %s %s returned %d: %s", pkg.ErrUnsuccessfulResponse, e.Method, e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return pkg.ErrUnsuccessfulResponse
}
