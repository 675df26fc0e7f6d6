// Package apierror provides the JSON error envelope returned by every
// API endpoint.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/grcmmap/api/pkg/domain/shared"
)

// Code is a machine-readable error code.
type Code string

// Error codes.
const (
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodePayloadTooLarge   Code = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMedia  Code = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeTimeout           Code = "TIMEOUT"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeUnavailable       Code = "SERVICE_UNAVAILABLE"
)

// Error is an API error. Err is kept for logging and never serialized.
type Error struct {
	Status  int    `json:"-"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Response is the serialized error body.
type Response struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ToResponse converts the error to its response body.
func (e *Error) ToResponse() Response {
	return Response{Code: e.Code, Message: e.Message, Details: e.Details}
}

// WriteJSON writes the error as JSON.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	e.write(w, e.ToResponse())
}

// WriteJSONWithRequestID writes the error as JSON tagged with the request ID.
func (e *Error) WriteJSONWithRequestID(w http.ResponseWriter, requestID string) {
	resp := e.ToResponse()
	resp.RequestID = requestID
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	e.write(w, resp)
}

func (e *Error) write(w http.ResponseWriter, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(body)
}

// New creates an API error.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithDetails attaches client-visible details.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithError attaches an internal cause.
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound creates a 404 error for the named resource.
func NotFound(resource string) *Error {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return New(http.StatusNotFound, CodeNotFound, message)
}

// NotFoundMessage creates a 404 error with a literal message.
func NotFoundMessage(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Conflict creates a 409 error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// ValidationFailed creates a 422 error with per-field details.
func ValidationFailed(message string, details any) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidationFailed, message).WithDetails(details)
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limit int64) *Error {
	return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", limit))
}

// UnsupportedMediaType creates a 415 error.
func UnsupportedMediaType(message string) *Error {
	return New(http.StatusUnsupportedMediaType, CodeUnsupportedMedia, message)
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *Error {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return New(http.StatusTooManyRequests, CodeRateLimitExceeded, message)
}

// Timeout creates a 503 error for requests that ran out of time.
func Timeout() *Error {
	return New(http.StatusServiceUnavailable, CodeTimeout, "Request timed out")
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *Error {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return New(http.StatusServiceUnavailable, CodeUnavailable, message)
}

// InternalError creates a 500 error. The cause is logged, not returned.
func InternalError(err error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternalError,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// FromError classifies err. API errors pass through; domain sentinels map
// to their HTTP equivalents; anything else is an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		return NotFound("").WithError(err)
	case errors.Is(err, shared.ErrValidation):
		return BadRequest(err.Error()).WithError(err)
	case errors.Is(err, shared.ErrAlreadyExists):
		return Conflict("Resource already exists").WithError(err)
	default:
		return InternalError(err)
	}
}
