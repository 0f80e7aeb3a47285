package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Startup errors
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Login flow errors
	ErrCodeUserCancelled      ErrorCode = "USER_CANCELLED"
	ErrCodeStateMismatch      ErrorCode = "STATE_MISMATCH"
	ErrCodeAuthExchangeFailed ErrorCode = "AUTH_EXCHANGE_FAILED"
	ErrCodeProfileFetchFailed ErrorCode = "PROFILE_FETCH_FAILED"
	ErrCodeLinkConflict       ErrorCode = "LINK_CONFLICT"
	ErrCodeSignupDisabled     ErrorCode = "SIGNUP_DISABLED"

	// Downstream API errors
	ErrCodeAPICallFailed ErrorCode = "API_CALL_FAILED"
)

// APICallReason explains why a downstream provider call failed
type APICallReason string

const (
	ReasonUnlinked           APICallReason = "unlinked"
	ReasonUnauthorized       APICallReason = "unauthorized"
	ReasonTransientExhausted APICallReason = "transient-exhausted"
	ReasonRejected           APICallReason = "rejected"
)

const reasonDetailKey = "reason"

// Error represents a structured error with code, message, and optional details
type Error struct {
	Code    ErrorCode              // Unique error code
	Message string                 // Human-readable error message
	Details map[string]interface{} // Optional additional details
	Err     error                  // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code.
// The outermost structured error wins, so a wrapped NOT_FOUND inside an
// API_CALL_FAILED reports API_CALL_FAILED.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
// Returns ErrCodeInternal if the error is not a structured Error
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest

	case ErrCodeStateMismatch, ErrCodeUserCancelled:
		return http.StatusUnauthorized

	case ErrCodeSignupDisabled:
		return http.StatusForbidden

	case ErrCodeNotFound:
		return http.StatusNotFound

	case ErrCodeLinkConflict:
		return http.StatusConflict

	case ErrCodeAuthExchangeFailed, ErrCodeProfileFetchFailed, ErrCodeAPICallFailed:
		return http.StatusBadGateway

	case ErrCodeConfiguration, ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Configuration creates a startup configuration error
func Configuration(message string) *Error {
	return New(ErrCodeConfiguration, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// APICallFailed creates a downstream API error tagged with a reason
func APICallFailed(reason APICallReason, err error) *Error {
	e := &Error{
		Code:    ErrCodeAPICallFailed,
		Message: "provider api call failed",
		Err:     err,
	}
	return e.WithDetail(reasonDetailKey, reason)
}

// GetAPICallReason returns the reason attached to an API_CALL_FAILED error.
// The second result is false for any other error.
func GetAPICallReason(err error) (APICallReason, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Code != ErrCodeAPICallFailed {
		return "", false
	}
	reason, ok := e.Details[reasonDetailKey].(APICallReason)
	return reason, ok
}
