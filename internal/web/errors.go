package web

// errors.go keeps every API error in one shape.
//
// The technical error is logged with the request ID. The client receives the
// mapped user message with its code and a suggested action.

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/logging"
)

// errBadRequest marks request bodies that cannot be decoded.
var errBadRequest = errors.New("invalid request body")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form. The status is
// derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}

	writeJSON(w, r, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrTooManyBatches):
		return http.StatusTooManyRequests
	case errors.Is(err, batch.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, batch.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, batch.ErrInvalidMode),
		errors.Is(err, batch.ErrNoInputFiles),
		errors.Is(err, batch.ErrOutputDir),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
