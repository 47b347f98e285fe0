package explorer

import (
	"errors"
	"fmt"
)

// ErrEmptyHistory is returned when the explorer reports that the address has
// no activity yet. It is a normal zero-match result, not a failure.
var ErrEmptyHistory = errors.New("address has no history")

// TransientError wraps transport failures, non-2xx responses and malformed
// explorer output. The watcher treats it as "no new information this round"
// and retries on the next poll.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("explorer %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable explorer failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func transientf(op, format string, args ...interface{}) error {
	return &TransientError{Op: op, Err: fmt.Errorf(format, args...)}
}
