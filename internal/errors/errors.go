// Package errors holds the sentinel errors shared by storage, identity and
// the chat modules, plus the error types the router and web API inspect.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyAnswered means the account already has a response for the
	// question. Nothing was written.
	ErrAlreadyAnswered = errors.New("already answered")

	// ErrInvalidLinkCode covers unknown, used and expired link codes alike.
	ErrInvalidLinkCode = errors.New("invalid or expired link code")

	// ErrAlreadyLinked means the chat identity is already bound to the target account.
	ErrAlreadyLinked = errors.New("already linked")

	ErrInvalidInput = errors.New("invalid input")

	// ErrChoicesLocked means the options or answer of a question that has
	// been published or answered were about to change.
	ErrChoicesLocked = errors.New("choices are locked")

	// ErrTokenUnavailable means no usable provider access token could be obtained.
	ErrTokenUnavailable = errors.New("token unavailable")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// ValidationError rejects a field of an admin or account request.
// It matches ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UserError carries the chat reply to show instead of the generic apology.
type UserError struct {
	Message string
	Err     error
}

// WithUserMessage attaches a reply to err. It returns nil for a nil err.
func WithUserMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &UserError{Message: message, Err: err}
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%v (reply: %q)", e.Err, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Err
}
