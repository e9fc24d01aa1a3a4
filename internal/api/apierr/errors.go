package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeInvalidStatus         = "INVALID_STATUS"
	CodeInvalidDate           = "INVALID_DATE"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeAPIDisabled           = "API_DISABLED"
	CodeCharacterNotFound     = "CHARACTER_NOT_FOUND"
	CodeAmbiguousCharacter    = "AMBIGUOUS_CHARACTER"
	CodeCharacterTaken        = "CHARACTER_TAKEN"
	CodeEventNotFound         = "EVENT_NOT_FOUND"
	CodeEventClosed           = "EVENT_CLOSED"
	CodeTemplateNotFound      = "TEMPLATE_NOT_FOUND"
	CodeParticipationNotFound = "PARTICIPATION_NOT_FOUND"
	CodeUnavailable           = "UNAVAILABLE"
	CodeInternalError         = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status WriteError would use for err
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ambiguous *model.AmbiguousCharacterError
	if errors.As(err, &ambiguous) {
		return &httpError{http.StatusConflict, APIError{CodeAmbiguousCharacter, ambiguous.Error()}}
	}

	switch {
	case errors.Is(err, model.ErrCharacterNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCharacterNotFound, "Character not found"}}
	case errors.Is(err, model.ErrCharacterTaken):
		return &httpError{http.StatusConflict, APIError{CodeCharacterTaken, "Character is already signed up by another member"}}
	case errors.Is(err, model.ErrEventNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeEventNotFound, "Event not found"}}
	case errors.Is(err, model.ErrEventClosed):
		return &httpError{http.StatusConflict, APIError{CodeEventClosed, "Event is not open for sign-up"}}
	case errors.Is(err, model.ErrTemplateNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTemplateNotFound, "Event template not found"}}
	case errors.Is(err, model.ErrParticipationNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipationNotFound, "Participation not found"}}
	case errors.Is(err, model.ErrInvalidStatus):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidStatus, "Status must be confirmed, tentative or declined"}}
	case errors.Is(err, model.ErrInvalidDate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDate, "Invalid date"}}
	case errors.Is(err, model.ErrInvalidName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Invalid name"}}
	case errors.Is(err, model.ErrTransient):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeUnavailable, "Temporarily unavailable, try again"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid token"}}
	case errors.Is(err, auth.ErrAuthDisabled):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeAPIDisabled, "Admin API is not configured"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
