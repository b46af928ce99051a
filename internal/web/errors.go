package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request ID (server-side)
//   - Returned to clients as a user-friendly message with an action and code
//
// Validation failures additionally carry the path and message of every
// offending field.

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/JonMunkholm/watchlist/internal/core"
	"github.com/JonMunkholm/watchlist/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Fields  []core.ValidationError `json:"fields,omitempty"`
}

// respondError logs err and writes its user-facing form. A zero status is
// derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err.Error(),
			"code", userMsg.Code,
		)
	} else {
		logger.Warn("request rejected",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err.Error(),
			"code", userMsg.Code,
		)
	}

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = verrs
	}

	writeJSON(w, status, resp)
}

// writeError writes an error response for a failure that has no error value.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondError(w, r, errors.New(message), status)
}

// statusFor maps known errors to HTTP status codes.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyRows):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUnknownSource),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrMalformedFile),
		errors.Is(err, core.ErrMissingTitleColumn):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCatalogUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nginx convention
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
