package swipequeue

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrQueueFull    = errors.New("user already has maximum swipes in queue")
	ErrUserNotFound = errors.New("user not found")
	ErrNoCandidates = errors.New("no eligible candidates found")
	ErrNotFound     = errors.New("swipe not found")
	ErrValidation   = errors.New("validation error")
	ErrTooFast      = errors.New("queue generation rate limit exceeded")
)

const genericFailureMessage = "operation failed"

// StoreError wraps a data-access failure. Its cause is for logs only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return e.Op + ": store failure"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type TooFastError struct {
	RetryAfterSec int64
}

func (e *TooFastError) Error() string {
	return ErrTooFast.Error() + ", retry after " + strconv.FormatInt(e.RetryAfterSec, 10) + "s"
}

func (e *TooFastError) Unwrap() error {
	return ErrTooFast
}

// Message maps an engine error to the text shown to the caller.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return genericFailureMessage
	}

	switch {
	case errors.Is(err, ErrQueueFull):
		return ErrQueueFull.Error()
	case errors.Is(err, ErrUserNotFound):
		return ErrUserNotFound.Error()
	case errors.Is(err, ErrNoCandidates):
		return ErrNoCandidates.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrTooFast):
		return err.Error()
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return genericFailureMessage
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
