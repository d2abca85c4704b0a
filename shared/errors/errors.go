package errors

import (
	"errors"
	"fmt"
)

var NotFound = errors.New("Not found")

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// Check if err is instance of T for custom error types
func Is[T error](err error) bool {
	if _, ok := err.(T); ok {
		return true
	}
	return false
}

// AuthorizationError aborts the pipeline before any mutation happens.
// It is fatal for the request: user-visible denial, no retry path.
type AuthorizationError struct {
	Capability string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not allowed: %s", e.Capability)
}

// StagingInconsistency is a recoverable warning about staged attachments
// that belong to a different post context. It is surfaced but non-blocking.
type StagingInconsistency struct {
	Files []string
	// Context the files were staged for, so the user can navigate back.
	Board     string
	MessageId int64
}

func (e *StagingInconsistency) Error() string {
	return fmt.Sprintf("staged attachments belong to another post: %v", e.Files)
}

// PersistenceFailure wraps storage errors so handlers surface them
// generically without leaking query details.
type PersistenceFailure struct {
	Err error
}

func (e *PersistenceFailure) Error() string {
	return "storage failure"
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}
