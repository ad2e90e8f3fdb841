package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err) or respondSessionError for workflow steps
//  3. statusFor picks the HTTP status from the error chain
//  4. core.MapError supplies the user-facing message and code
//  5. Technical error + request ID is logged server-side

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leadimport/internal/core"
	"github.com/JonMunkholm/leadimport/internal/logging"
	mw "github.com/JonMunkholm/leadimport/internal/web/middleware"
)

var (
	errNoFile         = errors.New("no file provided")
	errMappingRequest = errors.New("invalid mapping request")
	errFileTooLarge   = errors.New("file too large")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
// Workflow errors also carry the session so clients can render its state.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Action  string            `json:"action,omitempty"`
	Code    string            `json:"code"`
	Details []string          `json:"details,omitempty"`
	Session *core.SessionView `json:"session,omitempty"`
}

// respondError logs err and writes the mapped JSON error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, nil)
}

// respondSessionError is respondError for workflow steps that still return
// the session view alongside the failure.
func respondSessionError(w http.ResponseWriter, r *http.Request, view core.SessionView, err error) {
	if view.ID == "" {
		writeError(w, r, err, nil)
		return
	}
	writeError(w, r, err, &view)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, view *core.SessionView) {
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
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Session: view,
	}
	var pe *core.PersistenceError
	if errors.As(err, &pe) {
		resp.Details = pe.Messages
	}
	writeJSON(w, status, resp)
}

// statusFor maps an error chain to an HTTP status.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		parseErr *core.ParseError
		persist  *core.PersistenceError
	)
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &parseErr), errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrNoRows),
		errors.Is(err, errNoFile), errors.Is(err, errMappingRequest),
		errors.Is(err, core.ErrUnknownField), errors.Is(err, core.ErrUnknownColumn):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrTooManyImports), errors.Is(err, core.ErrHistoryUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, mw.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &persist):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
