package response

import (
	"errors"
	"net/http"

	"github.com/trailborn/tours-api/internal/domain"
	"github.com/trailborn/tours-api/pkg/logger"
)

// ErrorResponse is the structured JSON error body.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternalError = "INTERNAL_ERROR"
)

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	write(w, statusCode, ErrorResponse{Status: "error", Error: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

// Error maps a domain error to its status code. Internal diagnostics are
// logged, never sent to the caller.
func Error(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "no resource found with that ID")
	case errors.Is(err, domain.ErrDuplicate):
		Conflict(w, "a resource with these values already exists")
	default:
		logger.Error("request failed", "error", err)
		InternalError(w, "something went very wrong")
	}
}
