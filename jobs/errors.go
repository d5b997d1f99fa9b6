package jobs

import (
	"errors"
	"fmt"
	"time"
)

// InvalidStateError is returned when an operation isn't legal in the jobs current lifecycle state, this indicates a
// programming error by the caller.
type InvalidStateError struct {
	Op    string
	State State
}

func (i *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s in state %q", i.Op, i.State)
}

// IsInvalidStateError returns a boolean indicating whether the given error is an 'InvalidStateError'.
func IsInvalidStateError(err error) bool {
	var invalidState *InvalidStateError
	return errors.As(err, &invalidState)
}

// TimeoutError is returned when the caller supplied deadline elapsed whilst waiting for a job to reach a terminal
// state. The job keeps running server-side, waiting may be resumed.
type TimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (t *TimeoutError) Error() string {
	return fmt.Sprintf("job %q did not reach a terminal state within %s", t.ID, t.Timeout)
}

// IsTimeoutError returns a boolean indicating whether the given error is a 'TimeoutError'.
func IsTimeoutError(err error) bool {
	var timeout *TimeoutError
	return errors.As(err, &timeout)
}
