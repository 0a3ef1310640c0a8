package engine

import (
	"fmt"

	"github.com/conectabot/inbox/pkg"
)

// MalformedEntryError reports one snapshot or message entry that was skipped.
// It matches pkg.ErrMalformedEntry with errors.Is.
type MalformedEntryError struct {
	ID     string // conversation id, or "#n" for a message index
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%s %s: %s", pkg.ErrMalformedEntry, e.ID, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error {
	return pkg.ErrMalformedEntry
}
