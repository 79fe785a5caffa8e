package playwait

import (
	"errors"
	"fmt"
)

// ErrPrecondition matches every *PreconditionError under errors.Is.
var ErrPrecondition = errors.New("playwait: precondition failed")

// PreconditionError is returned synchronously when an operation is called
// with a bad argument or while the player is in an incompatible state.
//
// These are programming errors in the calling test, so they are never
// delivered through a Future.
type PreconditionError struct {
	Op     string // Operation name, e.g. "WaitForTime"
	Reason string // What was required
}

// Error returns the error message.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("playwait: %s: %s", e.Op, e.Reason)
}

// Is lets errors.Is match ErrPrecondition.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// precondition returns a *PreconditionError for op when ok is false.
func precondition(op, reason string, ok bool) error {
	if ok {
		return nil
	}
	return &PreconditionError{Op: op, Reason: reason}
}
