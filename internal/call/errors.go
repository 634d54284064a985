package call

import (
	"errors"
	"fmt"
)

var (
	ErrSessionClosed    = errors.New("session closed")
	ErrNoPeerLink       = errors.New("no peer link")
	ErrMediaUnavailable = errors.New("local media unavailable")
)

// CallError wraps a failed negotiation step with the operation that failed.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewError wraps err with the failing operation's name.
func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}
