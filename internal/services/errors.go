package services

import (
	"errors"
	"fmt"
)

// Step-level failures. All of these are terminal for the step that produced
// them but never fatal for the session: the user gets a message, and pending
// state is either kept open for retry or reset, depending on the kind.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidFormat      = errors.New("invalid button format")
	ErrInvalidURL         = errors.New("invalid button url")
	ErrInvalidDestination = errors.New("invalid destination")
	ErrPermissionDenied   = errors.New("permission denied")
)

// TransportError wraps a failed Telegram API call with the operation that
// issued it. Failures are caught at the call site and converted to values;
// they never abort processing of the event that triggered them.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
