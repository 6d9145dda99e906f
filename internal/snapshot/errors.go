package snapshot

import (
	"errors"
	"strings"
)

// ErrNotFound reports that the store has no snapshot for the requested id.
var ErrNotFound = errors.New("snapshot not found")

// DefaultDeleteFailure is shown when a failed delete carried no server message.
const DefaultDeleteFailure = "Failed to delete the snapshot."

// MutationError is returned when a mutating request was rejected or failed.
// Message is safe to show to the user.
type MutationError struct {
	Status  int
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = DefaultDeleteFailure
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *MutationError) Unwrap() error { return e.Err }

// UserMessage returns the server supplied message, or the generic failure
// text when the server gave none.
func (e *MutationError) UserMessage() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return DefaultDeleteFailure
}
