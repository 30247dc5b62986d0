package rig

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Client matches exactly one of these
// with errors.Is.
var (
	ErrConnection = errors.New("connection error")
	ErrStream     = errors.New("stream error")
	ErrCommand    = errors.New("command error")
	ErrDetection  = errors.New("detection error")
)

// Error describes a failed backend request.
type Error struct {
	Kind   error  // one of the Err* kinds
	Op     string // e.g. "connect", "motor"
	Status int    // HTTP status, 0 when the request never completed
	Detail string // server-provided detail message, if any
	Err    error  // transport or decode cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return e.Op + ": " + e.Kind.Error()
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the user-facing text for err: the server's detail when it
// sent one, otherwise fallback.
func Message(err error, fallback string) string {
	var re *Error
	if errors.As(err, &re) && re.Detail != "" {
		return re.Detail
	}
	return fallback
}

// StreamFailure wraps a channel-level failure as a stream error.
func StreamFailure(op string, cause error) error {
	return &Error{Kind: ErrStream, Op: op, Err: cause}
}
