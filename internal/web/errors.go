package web

// errors.go provides unified error response handling for the web layer.
//
// Most grid operations report failures through the status line of the grid
// itself, so handlers only come here when there is no grid to show: bad
// form input, oversized uploads and failed downloads.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
	"github.com/JonMunkholm/dataadmin/internal/logging"
	"github.com/JonMunkholm/dataadmin/internal/web/templates"
)

// errBadRequest marks malformed form input.
var errBadRequest = errors.New("invalid form input")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes a user-friendly one in
// the format the client expects (HTMX fragment, JSON or HTML page).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		_ = templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		_ = templates.ErrorPage(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
	}
}

// statusFor picks the HTTP status of a failed grid operation.
func statusFor(err error) int {
	var apiErr *dataapi.APIError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrNoActiveTable), errors.Is(err, core.ErrNoEditor):
		return http.StatusConflict
	case errors.Is(err, core.ErrRowNotFound), errors.Is(err, core.ErrUnknownTable):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotUploadField), errors.Is(err, core.ErrNoImportFile), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge), strings.HasPrefix(err.Error(), "file too large"):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dataapi.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// formFileError wraps a multipart parsing failure so it maps to the right
// user message and status.
func formFileError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("file too large (max %d bytes): %w", limit, err)
	}
	return badRequest("%v", err)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
