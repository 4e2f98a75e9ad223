package apierr

import (
	"context"
	"errors"
	"net/http"

	"github.com/mcoot/fiteval/internal/api/response"
	"github.com/mcoot/fiteval/internal/services/auth"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/services/upload"
)

// Re-export the response bodies used by errors
type (
	AuthResult    = response.AuthResult
	ErrorResponse = response.ErrorResponse
)

// Messages shared with handlers and tests
const (
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid username or password"
	MsgPasswordTooLong    = "Password must be at most 72 bytes"
	MsgAuthRequired       = "Authentication required"
	MsgMissingInput       = "Missing video or test type"
	MsgNotVideo           = "Only video files allowed!"
	MsgDuplicateFile      = "Only one video file allowed"
	MsgTooLarge           = "Upload too large"
	MsgMalformed          = "Malformed upload"
	MsgEvaluatorFailed    = "Python script failed"
	MsgEvaluatorTimeout   = "Evaluation timed out"
	MsgUnavailable        = "Evaluation capacity unavailable"
	MsgInternal           = "Internal server error"
)

// httpError combines an HTTP status code with a response body
type httpError struct {
	status int
	body   any
}

// Error implements error interface
func (e *httpError) Error() string {
	switch b := e.body.(type) {
	case AuthResult:
		return b.Message
	case ErrorResponse:
		return b.Error
	default:
		return http.StatusText(e.status)
	}
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	response.JSON(w, he.status, he.body)
}

// Status returns the status code WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var invErr *evaluation.InvocationError
	if errors.As(err, &invErr) {
		if invErr.Kind == evaluation.Timeout {
			return &httpError{http.StatusGatewayTimeout, ErrorResponse{MsgEvaluatorTimeout, invErr.Details}}
		}
		return &httpError{http.StatusInternalServerError, ErrorResponse{MsgEvaluatorFailed, invErr.Details}}
	}

	switch {
	// Map auth errors
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusBadRequest, AuthResult{Message: MsgUserExists}}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, AuthResult{Message: MsgInvalidCredentials}}
	case errors.Is(err, auth.ErrPasswordTooLong):
		return &httpError{http.StatusBadRequest, AuthResult{Message: MsgPasswordTooLong}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, ErrorResponse{Error: MsgAuthRequired}}

	// Map upload errors
	case errors.Is(err, upload.ErrMissingInput):
		return &httpError{http.StatusBadRequest, ErrorResponse{Error: MsgMissingInput}}
	case errors.Is(err, upload.ErrUnsupportedMediaType):
		return &httpError{http.StatusUnsupportedMediaType, ErrorResponse{Error: MsgNotVideo}}
	case errors.Is(err, upload.ErrDuplicateFile):
		return &httpError{http.StatusBadRequest, ErrorResponse{Error: MsgDuplicateFile}}
	case errors.Is(err, upload.ErrPayloadTooLarge):
		return &httpError{http.StatusRequestEntityTooLarge, ErrorResponse{Error: MsgTooLarge}}
	case errors.Is(err, upload.ErrMalformed):
		return &httpError{http.StatusBadRequest, ErrorResponse{Error: MsgMalformed}}

	// Gave up waiting for an evaluation slot
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &httpError{http.StatusServiceUnavailable, ErrorResponse{Error: MsgUnavailable}}

	default:
		return &httpError{http.StatusInternalServerError, ErrorResponse{Error: MsgInternal}}
	}
}

// NewInvalidAuthRequestError creates a 400 in the signup/login body shape
func NewInvalidAuthRequestError(message string) error {
	return &httpError{http.StatusBadRequest, AuthResult{Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, ErrorResponse{Error: MsgAuthRequired}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, ErrorResponse{Error: MsgInternal}}
}
