package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode categorizes errors surfaced by the feed engine.
type ErrorCode string

const (
	// ErrCodeNetworkFailure is transient; re-invoking the same operation may succeed.
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// ErrCodeNotFound is terminal for that lookup.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidationRejected means the input never reached the remote layer.
	ErrCodeValidationRejected ErrorCode = "VALIDATION_REJECTED"

	// ErrCodeUnauthorized asks for authentication rather than reporting a failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeConflict means the remote state changed underneath the caller,
	// e.g. a listing sold between view and purchase. Not retried automatically.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Error is a classified error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed ("fetch_listings", "create_like").
	Op string

	// Message is a human-readable description suitable for display.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain.
// Unclassified errors report ErrCodeNetworkFailure: anything that is not a
// known outcome of the remote contract is treated as transport trouble.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ErrCodeNetworkFailure
}

// Retryable reports whether re-invoking the failed operation may succeed.
func Retryable(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNetworkFailure
}

func hasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// IsNetworkFailure reports whether err is classified as a network failure.
func IsNetworkFailure(err error) bool { return hasCode(err, ErrCodeNetworkFailure) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidationRejected reports whether err is a validation rejection.
func IsValidationRejected(err error) bool { return hasCode(err, ErrCodeValidationRejected) }

// IsUnauthorized reports whether err is an authentication-required signal.
func IsUnauthorized(err error) bool { return hasCode(err, ErrCodeUnauthorized) }

// IsConflict reports whether err is a conflict.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

// NewNetworkError creates a network failure for op.
func NewNetworkError(op string, cause error) *Error {
	return &Error{Code: ErrCodeNetworkFailure, Op: op, Message: "network failure", Err: cause}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(op, message string) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Message: message}
}

// NewValidationError creates a validation rejection.
func NewValidationError(op, message string, cause error) *Error {
	return &Error{Code: ErrCodeValidationRejected, Op: op, Message: message, Err: cause}
}

// NewUnauthorizedError creates an authentication-required signal.
func NewUnauthorizedError(op, message string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Op: op, Message: message}
}

// NewConflictError creates a conflict error.
func NewConflictError(op, message string) *Error {
	return &Error{Code: ErrCodeConflict, Op: op, Message: message}
}

// Classify returns err as an *Error. Classified errors pass through
// unchanged; context deadlines and anything else become network failures.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrCodeNetworkFailure, Op: op, Message: "request timed out", Err: err}
	}
	return NewNetworkError(op, err)
}

// Wrap classifies err under code. The message is taken from err.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}
