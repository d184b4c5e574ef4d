// Package errors defines custom error types and error handling utilities for the AdvisorHub service.
// This package provides structured error types that map to stable API error codes and HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Code is a stable, machine-readable error code returned to API clients.
type Code string

const (
	CodeInvalidRequest     Code = "invalid_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeQuotaExceeded      Code = "quota_exceeded"
	CodeRateLimitExceeded  Code = "rate_limit_exceeded"
	CodeWorkflowViolation  Code = "workflow_violation"
	CodeUpstream           Code = "upstream_error"
	CodeServerError        Code = "server_error"
	CodeServiceUnavailable Code = "service_unavailable"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AppError represents a structured error with additional metadata
type AppError interface {
	error

	// Code returns the API error code
	Code() Code

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AppError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) AppError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// baseError is the internal implementation of AppError
type baseError struct {
	code        Code
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface
func (e *baseError) Error() string {
	msg := e.message
	if msg == "" {
		msg = e.description
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *baseError) Code() Code          { return e.code }
func (e *baseError) HTTPStatus() int     { return e.httpStatus }
func (e *baseError) Description() string { return e.description }
func (e *baseError) Unwrap() error       { return e.cause }

// Message returns the message without the cause chain.
func (e *baseError) Message() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// WithCause adds a cause error to the error chain
func (e *baseError) WithCause(cause error) AppError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata
func (e *baseError) WithMetadata(key string, value interface{}) AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// NewError creates a new AppError with the specified parameters
func NewError(code Code, httpStatus int, description string, message string) AppError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) AppError {
	return NewError(CodeInvalidRequest, http.StatusBadRequest,
		"The request is missing a required parameter, includes an invalid parameter value, or is otherwise malformed.",
		message)
}

// ErrUnauthorized creates an unauthorized error
func ErrUnauthorized(message string) AppError {
	return NewError(CodeUnauthorized, http.StatusUnauthorized,
		"Authentication is required or the supplied credentials are invalid.",
		message)
}

// ErrForbidden creates a forbidden error
func ErrForbidden(message string) AppError {
	return NewError(CodeForbidden, http.StatusForbidden,
		"The authenticated principal is not allowed to perform this action.",
		message)
}

// ErrNotFound creates a not_found error for the named resource
func ErrNotFound(resource string, id string) AppError {
	return NewError(CodeNotFound, http.StatusNotFound,
		"The requested resource was not found.",
		fmt.Sprintf("%s not found: %s", resource, id)).
		WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) AppError {
	return NewError(CodeConflict, http.StatusConflict,
		"The request conflicts with the current state of the resource.",
		message)
}

// ErrQuotaExceeded creates a quota_exceeded error for a subscription limit
func ErrQuotaExceeded(quota string, limit int) AppError {
	return NewError(CodeQuotaExceeded, http.StatusPaymentRequired,
		"The firm's subscription does not allow this operation.",
		fmt.Sprintf("subscription limit reached for %s (%d)", quota, limit)).
		WithMetadata("quota", quota).
		WithMetadata("limit", limit)
}

// ErrRateLimitExceeded creates a rate limit exceeded error
func ErrRateLimitExceeded(scope string, limit int) AppError {
	return NewError(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"Rate limit exceeded. Please try again later.",
		fmt.Sprintf("rate limit exceeded for scope '%s': %d requests", scope, limit)).
		WithMetadata("scope", scope).
		WithMetadata("limit", limit)
}

// ErrWorkflowViolation creates an error for an out-of-order or illegal state transition
func ErrWorkflowViolation(message string) AppError {
	return NewError(CodeWorkflowViolation, http.StatusConflict,
		"The requested transition is not allowed from the current state.",
		message)
}

// ErrUpstream creates an error for a failed dependency such as the language model API
func ErrUpstream(service string, message string) AppError {
	return NewError(CodeUpstream, http.StatusBadGateway,
		"An upstream service failed to produce a usable response.",
		message).
		WithMetadata("service", service)
}

// ErrServerError creates a server_error error
func ErrServerError(message string) AppError {
	return NewError(CodeServerError, http.StatusInternalServerError,
		"The server encountered an unexpected condition that prevented it from fulfilling the request.",
		message)
}

// ErrServiceUnavailable creates a service_unavailable error
func ErrServiceUnavailable(message string) AppError {
	return NewError(CodeServiceUnavailable, http.StatusServiceUnavailable,
		"The service is temporarily unable to handle the request.",
		message)
}

// ================================================================================
// Domain-Specific Error Constructors
// ================================================================================

// ErrMissingRequiredParameter creates a missing required parameter error
func ErrMissingRequiredParameter(paramName string) AppError {
	return ErrInvalidRequest(fmt.Sprintf("missing required parameter: %s", paramName)).
		WithMetadata("parameter", paramName)
}

// ErrInvalidParameterFormat creates an invalid parameter format error
func ErrInvalidParameterFormat(paramName string, expectedFormat string) AppError {
	return ErrInvalidRequest(fmt.Sprintf("invalid format for parameter '%s': expected %s", paramName, expectedFormat)).
		WithMetadata("parameter", paramName).
		WithMetadata("expected_format", expectedFormat)
}

// ErrValidation creates an invalid_request error carrying one message per offending field.
func ErrValidation(fieldErrors map[string]string) AppError {
	keys := make([]string, 0, len(fieldErrors))
	for k := range fieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	err := ErrInvalidRequest("validation failed: " + strings.Join(keys, ", "))
	for _, k := range keys {
		err.WithMetadata(k, fieldErrors[k])
	}
	return err
}

// ErrDatabase wraps a persistence failure
func ErrDatabase(operation string, cause error) AppError {
	return ErrServerError(fmt.Sprintf("database operation failed: %s", operation)).
		WithCause(cause).
		WithMetadata("operation", operation)
}

// ErrCache wraps a cache failure
func ErrCache(operation string, cause error) AppError {
	return ErrServerError(fmt.Sprintf("cache operation failed: %s", operation)).
		WithCause(cause).
		WithMetadata("operation", operation)
}

// ErrStorage wraps an object storage failure
func ErrStorage(operation string, cause error) AppError {
	return ErrServerError(fmt.Sprintf("storage operation failed: %s", operation)).
		WithCause(cause).
		WithMetadata("operation", operation)
}

// ================================================================================
// Error Validation Utilities
// ================================================================================

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap converts a generic error into an AppError with the given code and message.
// An error that already is an AppError is returned unchanged.
func Wrap(err error, code Code, message string) AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return NewError(code, statusForCode(code), message, message).WithCause(err)
}

func statusForCode(code Code) int {
	switch code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeWorkflowViolation:
		return http.StatusConflict
	case CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code() == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConflictError checks if an error is a conflict error.
func IsConflictError(err error) bool {
	return HasCode(err, CodeConflict)
}

// ShouldLogError determines if an error should be logged based on severity
func ShouldLogError(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		status := appErr.HTTPStatus()
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return true
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		if be, ok := appErr.(*baseError); ok {
			return be.Message()
		}
		return appErr.Error()
	}
	return "an unexpected error occurred"
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts any error to an ErrorResponse
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:            string(appErr.Code()),
			ErrorDescription: MessageOf(appErr),
			Metadata:         appErr.Metadata(),
		}
	}
	return &ErrorResponse{
		Error:            string(CodeServerError),
		ErrorDescription: "an unexpected error occurred",
	}
}

//Personal.AI order the ending
