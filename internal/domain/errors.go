// Package domain holds the types shared by every service: the caller's
// identity, the error taxonomy and the tri-state optional used by updates.
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the caller has no organization or user context.
	ErrUnauthenticated  = errors.New("unauthenticated")
	// ErrForbidden means the caller is known but lacks the role or ownership.
	ErrForbidden        = errors.New("forbidden")
	// ErrNotFound covers both missing rows and rows owned by another organization.
	ErrNotFound         = errors.New("not found")
	// ErrInvalidReference means a supplied foreign id does not resolve in the organization.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrConflict covers uniqueness violations and deletes blocked by dependents.
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
)

// Error carries a human readable message alongside one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func InvalidReference(format string, args ...any) error {
	return newError(ErrInvalidReference, format, args...)
}

func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

func Validation(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// Message returns the message to show a client for err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Error()
	}
	return err.Error()
}
