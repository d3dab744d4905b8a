package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/logging"
	"github.com/account-monitor/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondText sends a plain text response.
func respondText(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write([]byte(body))
}

// Common error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// respondServiceError maps a service error to its HTTP status. Internal
// failures are logged and reported without their cause.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("Request failed")
	}
	if retryAfter, ok := details["retryAfter"].(int); ok {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	respondError(w, status, code, message, details)
}

// mapServiceError maps service errors to HTTP status codes.
func mapServiceError(err error) (int, string, string, map[string]interface{}) {
	catErr := apperrors.Categorize(err)

	switch catErr.Category {
	case apperrors.CategoryNotFound, apperrors.CategoryNoData:
		return http.StatusNotFound, catErr.Code, catErr.Message, catErr.Details
	case apperrors.CategoryValidation:
		return http.StatusBadRequest, catErr.Code, catErr.Message, catErr.Details
	case apperrors.CategoryRateLimit:
		return http.StatusTooManyRequests, catErr.Code, catErr.Message, catErr.Details
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil
	}
}
