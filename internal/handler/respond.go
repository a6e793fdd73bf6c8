// Package handler provides the admin HTTP surface.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"botadmin/pkg/errors"
)

// Logger is the subset of the logging interface handlers need.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError surfaces the literal message so the operator sees exactly
// what the service reported.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrUserNotFound),
		stderrors.Is(err, errors.ErrCountryNotFound),
		stderrors.Is(err, errors.ErrDepositNotFound),
		stderrors.Is(err, errors.ErrSettingsNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrInvalidReason),
		stderrors.Is(err, errors.ErrInvalidUPI),
		stderrors.Is(err, errors.ErrInvalidChannel),
		stderrors.Is(err, errors.ErrInvalidHandle),
		stderrors.Is(err, errors.ErrPlaceholderValue),
		stderrors.Is(err, errors.ErrInsufficientBalance),
		stderrors.Is(err, errors.ErrFileTooLarge),
		stderrors.Is(err, errors.ErrFileTypeNotAllowed):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrStaleRevision),
		stderrors.Is(err, errors.ErrDuplicateRequest),
		stderrors.Is(err, errors.ErrDepositSettled),
		stderrors.Is(err, errors.ErrCountryExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrActorUnauthorized),
		stderrors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrPlatformUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
