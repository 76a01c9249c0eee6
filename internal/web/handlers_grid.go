package web

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/logging"
)

// handleIndex renders the grid page. The first visit of a session loads the
// table list and the first table's rows.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r.Context())
	if !ctrl.Loaded() {
		if err := ctrl.LoadTables(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("initial table load failed", "error", err)
		}
	}
	s.renderGrid(w, r, !isHTMX(r))
}

func (s *Server) handleSelectTable(w http.ResponseWriter, r *http.Request) {
	err := controllerFrom(r.Context()).SelectTable(r.Context(), r.PostFormValue("table"))
	s.respond(w, r, "select table", err)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := controllerFrom(r.Context()).Reload(r.Context())
	s.respond(w, r, "reload", err)
}

// handlePage moves between pages: action is prev, next or jump (with page).
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r.Context())

	var err error
	switch action := r.PostFormValue("action"); action {
	case "prev":
		err = ctrl.PrevPage(r.Context())
	case "next":
		err = ctrl.NextPage(r.Context())
	case "jump":
		var n int
		if n, err = parsePositiveInt(r, "page"); err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		err = ctrl.JumpToPage(r.Context(), n)
	default:
		s.respondError(w, r, badRequest("unknown page action %q", action), http.StatusBadRequest)
		return
	}
	s.respond(w, r, "page", err)
}

func (s *Server) handlePerPage(w http.ResponseWriter, r *http.Request) {
	n, err := parsePositiveInt(r, "per_page")
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	err = controllerFrom(r.Context()).ChangePerPage(r.Context(), n)
	s.respond(w, r, "per page", err)
}

type exportFormat struct {
	ext         string
	contentType string
	write       func(c *core.Controller, ctx context.Context, w io.Writer) error
}

var (
	exportCSV = exportFormat{
		ext:         "csv",
		contentType: "text/csv; charset=utf-8",
		write:       (*core.Controller).ExportCSV,
	}
	exportXLSX = exportFormat{
		ext:         "xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       (*core.Controller).ExportXLSX,
	}
)

// handleExport downloads the active table. The file is buffered so a
// failed export can still be answered with an error page.
func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := controllerFrom(r.Context())

		var buf bytes.Buffer
		if err := format.write(ctrl, r.Context(), &buf); err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}

		name := core.ExportFilename(ctrl.Snapshot().ActiveTable, format.ext)
		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Cache-Control", "no-store")
		if _, err := buf.WriteTo(w); err != nil {
			logging.FromContext(r.Context()).Warn("export write interrupted", "error", err)
		}
	}
}
