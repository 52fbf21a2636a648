package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects malformed or illegal input before any mutation.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError builds a validation failure, optionally naming the offending fields.
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ConflictError marks a request that lost against current state
// (would-create-cycle, lock busy) and is recoverable by retry or adjustment.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError builds a conflict failure.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// NotFoundError marks a missing resource, terminal for the request.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFoundError builds a not-found failure.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ExternalError wraps a failed call against the external directory. The
// message of the underlying error is surfaced verbatim to callers.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return e.Err.Error()
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// NewExternalError wraps a directory call failure.
func NewExternalError(op string, err error) *ExternalError {
	return &ExternalError{Op: op, Err: err}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a conflict failure.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsExternal reports whether err originated in the external directory.
func IsExternal(err error) bool {
	var target *ExternalError
	return errors.As(err, &target)
}
