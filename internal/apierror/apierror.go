// Package apierror defines the gateway's closed error taxonomy (§7) and
// maps it to HTTP status codes in exactly one place.
package apierror

import (
	"fmt"
	"net/http"

	"github.com/claudex-gateway/claudex-gateway/internal/models"
)

// Kind is one of the closed set of error kinds the gateway ever produces.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindAuthentication Kind = "authentication_error"
	KindNotFound       Kind = "not_found"
	KindClaudeUnavail  Kind = "claude_unavailable"
	KindClaudeError    Kind = "claude_error"
	KindTimeout        Kind = "timeout"
	KindStreaming      Kind = "streaming_error"
	KindInternal       Kind = "internal_error"
)

// httpStatus maps each Kind to its HTTP status. Streaming errors have no
// HTTP status of their own: they are only ever emitted in-band over SSE.
var httpStatus = map[Kind]int{
	KindValidation:     http.StatusUnprocessableEntity,
	KindAuthentication: http.StatusUnauthorized,
	KindNotFound:       http.StatusNotFound,
	KindClaudeUnavail:  http.StatusServiceUnavailable,
	KindClaudeError:    http.StatusBadGateway,
	KindTimeout:        http.StatusGatewayTimeout,
	KindInternal:       http.StatusInternalServerError,
}

// Error is the gateway's single error type; Kind selects the HTTP status,
// Code is a more specific machine-readable code, and Details carries
// structured per-field validation failures when present.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Status returns the HTTP status for this error's kind.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Response renders the error as the OpenAI-compatible wire envelope.
func (e *Error) Response() models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.ErrorDetail{
			Message: e.Message,
			Type:    string(e.Kind),
			Code:    e.Code,
			Details: e.Details,
		},
	}
}

// New builds an Error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds a validation_error with structured field details.
func Validation(details any, message string) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_request", Message: message, Details: details}
}

// Internal wraps an unexpected error as internal_error; used at the router
// boundary to convert panics/unclassified failures.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: err.Error()}
}

// As extracts an *Error from err if present.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
