package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/logging"
)

const serverErrorMessage = "A server error occurred."

// ErrorResponse is the body of a non-field error.
type ErrorResponse struct {
	NonFieldErrors []string `json:"non_field_errors"`
	Code           string   `json:"code,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{NonFieldErrors: []string{message}}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{NonFieldErrors: []string{message}, Code: code}, statusCode)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPermissionDenied:
		return http.StatusForbidden
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError writes err as a JSON error body. Application errors keep
// their messages and field errors; anything else becomes a generic 500 and
// is logged with the request logger.
func RespondAppError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.GetLoggerFromContext(r.Context())

	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindInternal || appErr.Kind == apperr.KindConfiguration {
		logger.Error("request failed", "error", err)
		RespondErrorWithCode(w, serverErrorMessage, CodeInternalError, http.StatusInternalServerError)
		return
	}

	if appErr.Kind == apperr.KindAuthentication {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}

	status := StatusFor(appErr.Kind)
	if len(appErr.Fields) == 0 {
		RespondErrorWithCode(w, appErr.Message, appErr.Code, status)
		return
	}

	body := make(map[string]any, len(appErr.Fields)+2)
	for field, messages := range appErr.Fields {
		body[field] = messages
	}
	if msgs := appErr.Messages(); len(msgs) > 0 {
		body["non_field_errors"] = msgs
	}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	RespondJSON(w, body, status)
}
