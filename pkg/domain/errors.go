package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for lookups and cancellations of an unknown id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTransition is returned when a cancellation targets a session that is not running.
	ErrInvalidTransition = errors.New("session is not running")
	// ErrDuplicateSession signals an id collision in the session store.
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrOutputUnavailable is returned when downloading a session that has not completed.
	ErrOutputUnavailable = errors.New("session output not available")
	// ErrInvalidRequest is the sentinel behind every RequestError.
	ErrInvalidRequest = errors.New("invalid request")
)

// RequestError describes a malformed session request.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// CollectorError records a failed task. It never fails the session.
type CollectorError struct {
	TaskID string
	Task   string
	Err    error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Task, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

// PackagingError is returned when the output directory could not be packed.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging: %v", e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// SetupError is returned when a session cannot be prepared, before any task runs.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
