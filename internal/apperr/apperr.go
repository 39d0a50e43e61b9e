// Package apperr defines the error kinds shared by the service layer and the HTTP edge.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAnnotationRender = errors.New("annotation render failed")
	ErrPersistence      = errors.New("persistence failure")
)

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Invalid wraps ErrInvalidArgument. The message is shown to clients, so name the offending value and the constraint.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage or database failure.
func Persistence(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, cause)
}

// Render wraps a failure painting one annotation.
func Render(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAnnotationRender, fmt.Sprintf(format, args...))
}

// Message returns the client-facing part of err: the text after the sentinel prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	for _, k := range []error{ErrInvalidArgument, ErrNotFound, ErrAnnotationRender} {
		p := k.Error() + ": "
		if len(s) > len(p) && s[:len(p)] == p {
			return s[len(p):]
		}
	}
	return s
}
