package internaltypes

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")

	// ErrValidation marks local rejections that never reach the network.
	ErrValidation = errors.New("validation failed")
	// ErrTransport marks connectivity and timeout failures. Retryable by the user.
	ErrTransport = errors.New("transport failure")
	// ErrRemote marks backend rejections, including 2xx bodies that cannot be decoded.
	ErrRemote = errors.New("remote rejection")
)

// Invalid returns a validation error with a human-readable reason.
func Invalid(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// Transport wraps a network-level failure.
func Transport(err error, op string) error {
	if err == nil {
		return nil
	}
	wrapped := errors.Wrapf(err, "%s", op)
	return errors.WithHint(errors.Mark(wrapped, ErrTransport), "check connectivity and retry")
}

// RemoteError is a terminal rejection reported by the backend.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

const GenericFailure = "request failed"

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GenericFailure
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s: %s (status=%d)", e.Op, msg, e.Status)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

func Remote(op string, status int, message string) error {
	return &RemoteError{Op: op, Status: status, Message: message}
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsTransport(err error) bool  { return errors.Is(err, ErrTransport) }
func IsRemote(err error) bool     { return errors.Is(err, ErrRemote) }
