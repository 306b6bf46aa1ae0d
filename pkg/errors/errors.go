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

// Is matches errors carrying the same code so callers can compare against
// the predefined values after Clone or Wrap.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Scheduling and lifecycle errors.
var (
	ErrSlotConflict             = New("SLOT_CONFLICT", http.StatusConflict, "lesson slot capacity exceeded")
	ErrMissingCancelReason      = New("MISSING_CANCEL_REASON", http.StatusBadRequest, "cancel reason is required for canceled status")
	ErrMissingCompletionComment = New("MISSING_COMPLETION_COMMENT", http.StatusBadRequest, "completion comment is required for completed status")
	ErrUnknownCancelReason      = New("UNKNOWN_CANCEL_REASON", http.StatusBadRequest, "cancel reason not found")
	ErrInvalidTransition        = New("INVALID_TRANSITION", http.StatusBadRequest, "status transition not allowed")
	ErrInvalidInterval          = New("INVALID_INTERVAL", http.StatusBadRequest, "end must be later than start")
	ErrInactiveSubject          = New("INACTIVE_SUBJECT", http.StatusBadRequest, "subject is not in the active catalog")
	ErrStudentsNotAllowed       = New("STUDENTS_NOT_ALLOWED", http.StatusBadRequest, "students cannot participate in administrative events")
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
