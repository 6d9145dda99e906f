package query

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Poller methods after Close.
var ErrClosed = errors.New("poller closed")

// PreconditionMessage is the user facing text for a delete with no known data.
const PreconditionMessage = "The snapshot doesn't seem to exist."

// PreconditionError rejects a delete for an id the cache holds no data for.
// No request is made.
type PreconditionError struct {
	ID string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("delete %q: no cached snapshot", e.ID)
}

// UserMessage returns the text to show the user.
func (e *PreconditionError) UserMessage() string { return PreconditionMessage }
