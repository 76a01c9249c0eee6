package web

// This file contains shared utilities used across handlers.

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/logging"
	"github.com/JonMunkholm/dataadmin/internal/view"
	"github.com/JonMunkholm/dataadmin/internal/web/templates"
)

// multipartOverhead is the room left above Upload.MaxFileSize for the
// multipart envelope and other form fields.
const multipartOverhead = 1 << 20

// respond finishes a grid operation. The operation's outcome is already in
// the controller's status line, so failures are only logged: HTMX requests
// get the refreshed grid fragment, browsers are redirected back to the page.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil && !errors.Is(err, core.ErrStaleResponse) {
		logging.FromContext(r.Context()).Warn("grid operation failed", "op", op, "error", err)
	}
	if isHTMX(r) {
		s.renderGrid(w, r, false)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderGrid renders the current session's grid, as a full page or as the
// #grid fragment.
func (s *Server) renderGrid(w http.ResponseWriter, r *http.Request, full bool) {
	v := view.BuildGrid(controllerFrom(r.Context()).Snapshot())

	component := templates.Grid(v)
	if full {
		component = templates.GridPage(v)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := component.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render grid", "error", err)
	}
}

// parsePositiveInt parses a form value that must be >= 1.
func parsePositiveInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(name))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest("%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}

// pathParam returns a path segment decoded exactly once. chi routes on
// RawPath when the request has one, so only then is the segment still
// escaped; otherwise it already holds the decoded value.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
