package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"clowder-server/internal/shared/errors"
)

// ErrorResponse represents the JSON error response sent to clients
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error logs an error and sends a JSON error response to the client.
// Gameplay rejections (conflicts, validation) are surfaced verbatim, so
// the message the engine produced is exactly what the visitor sees.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errorType := errors.GetType(err)
	statusCode := mapErrorTypeToStatusCode(errorType)

	logError(logger, r, err, errorType, statusCode)
	sendErrorResponse(w, errorType, err.Error(), statusCode)
}

func mapErrorTypeToStatusCode(errorType errors.ErrorType) int {
	switch errorType {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrorTypeForbidden:
		return http.StatusForbidden
	case errors.ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

func logError(logger *slog.Logger, r *http.Request, err error, errorType errors.ErrorType, statusCode int) {
	logCtx := logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error_type", errorType,
		"status_code", statusCode,
	)

	switch errorType {
	case errors.ErrorTypeNotFound, errors.ErrorTypeValidation, errors.ErrorTypeMethodNotAllowed:
		logCtx.Debug("Request rejected", "error", err)
	case errors.ErrorTypeConflict:
		// Conflicts are routine in a shared colony: two visitors racing
		// for the same conflict class is expected play.
		logCtx.Info("Conflict rejection", "error", err)
	case errors.ErrorTypeUnauthorized, errors.ErrorTypeForbidden:
		logCtx.Warn("Authorization error", "error", err)
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		logCtx.Error("Internal server error", "error", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, errorType errors.ErrorType, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   string(errorType),
		Message: message,
		Code:    statusCode,
	}

	_ = json.NewEncoder(w).Encode(response)
}

// Success sends a JSON success response to the client
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
