package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors. The first five are the lifecycle kinds the loan core
// surfaces; callers decide retryability from the code.
var (
	// ErrInvalidRequestDraft signals a construction-time invariant
	// violation: bad window, quantity over cap, missing resource refs.
	ErrInvalidRequestDraft = New("INVALID_REQUEST_DRAFT", http.StatusBadRequest, "invalid loan request draft")
	// ErrIllegalTransition signals a status change outside the legal edge
	// set for the actor's role.
	ErrIllegalTransition = New("ILLEGAL_TRANSITION", http.StatusConflict, "illegal status transition")
	// ErrOperationInProgress signals that a transition is already in
	// flight for the request. Retryable once it resolves.
	ErrOperationInProgress = New("OPERATION_IN_PROGRESS", http.StatusConflict, "a transition is already in progress for this request")
	// ErrRemoteTransitionFailed signals that the backend rejected or never
	// answered a transition; local state has already been rolled back.
	ErrRemoteTransitionFailed = New("REMOTE_TRANSITION_FAILED", http.StatusBadGateway, "remote transition failed")
	// ErrSweepPartialFailure signals that one or more expired requests
	// could not be cancelled during a sweep.
	ErrSweepPartialFailure = New("SWEEP_PARTIAL_FAILURE", http.StatusBadGateway, "some expired requests could not be cancelled")

	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// HasCode reports whether err carries the same code as target.
func HasCode(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
