package models

import "fmt"

// APIError is the error type returned across the service boundary. Code is
// the HTTP status the error maps to; Message is safe to show to callers.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// ErrorResponse is the wire shape of every error body:
// {"error":{"code":...,"message":...}}.
type ErrorResponse struct {
	Err APIError `json:"error"`
}

// NewErrorResponse wraps an APIError into the response envelope.
func NewErrorResponse(e *APIError) ErrorResponse {
	return ErrorResponse{Err: *e}
}
