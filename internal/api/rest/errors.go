package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voltguard/voltguard-backend/internal/pkg/logger"
	"github.com/voltguard/voltguard-backend/internal/service"
)

// APIError represents a structured API error response.
type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes for common scenarios.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidSession     = "INVALID_SESSION"
	ErrCodeInvalidCode        = "INVALID_CODE"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeDeviceUnavailable  = "DEVICE_UNAVAILABLE"
	ErrCodeCommandFailed      = "COMMAND_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, APIError{
		Error:     message,
		Code:      code,
		RequestID: logger.FromContext(r.Context()),
	})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Unmapped errors become opaque 500s; their detail stays in the server log.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, service.ErrInvalidSession):
		respondError(w, r, http.StatusUnauthorized, ErrCodeInvalidSession, "Invalid or expired session")
	case errors.Is(err, service.ErrInvalidCode):
		respondError(w, r, http.StatusUnauthorized, ErrCodeInvalidCode, "Invalid second-factor code")
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Resource not found")
	case errors.Is(err, service.ErrConflict):
		respondError(w, r, http.StatusConflict, ErrCodeConflict, "Resource already exists")
	case errors.Is(err, service.ErrDeviceUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeDeviceUnavailable, "Device unavailable")
	case errors.Is(err, service.ErrCommandFailed):
		respondError(w, r, http.StatusBadGateway, ErrCodeCommandFailed, "Device command failed")
	default:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
	}
}
