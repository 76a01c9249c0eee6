package web

import (
	"net/http"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/web/templates"
)

func (s *Server) handleOpenEditor(w http.ResponseWriter, r *http.Request) {
	err := controllerFrom(r.Context()).OpenEditor(pathParam(r, "id"))
	s.respond(w, r, "open editor", err)
}

func (s *Server) handleCloseEditor(w http.ResponseWriter, r *http.Request) {
	controllerFrom(r.Context()).CloseEditor()
	s.respond(w, r, "close editor", nil)
}

// handleSubmitEdit saves the editor form. Only editable columns present in
// the form are considered; the controller diffs them against the snapshot
// taken when the editor opened.
func (s *Server) handleSubmitEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, badRequest("%v", err), http.StatusBadRequest)
		return
	}

	ctrl := controllerFrom(r.Context())
	snap := ctrl.Snapshot()
	if !snap.EditorOpen() {
		s.respond(w, r, "submit edit", core.ErrNoEditor)
		return
	}
	// A form posted from an editor that has since been replaced.
	if id := r.PostForm.Get("_row"); id != "" && id != snap.RowID(snap.EditingRow) {
		s.respond(w, r, "submit edit", core.ErrNoEditor)
		return
	}

	form := make(map[string]string)
	for _, col := range snap.EditableColumns() {
		if values, ok := r.PostForm[col]; ok && len(values) > 0 {
			form[col] = values[0]
		}
	}

	err := ctrl.SubmitEdit(r.Context(), form)
	s.respond(w, r, "submit edit", err)
}

// handleConfirmDelete shows the confirmation dialog for a row deletion.
func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.DeletePage(pathParam(r, "id"), core.DeletePrompt).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleDeleteRow deletes a row when the dialog was answered with yes.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	confirmed := r.PostFormValue("confirm") == "yes"
	err := controllerFrom(r.Context()).DeleteRow(r.Context(), pathParam(r, "id"), func(string) bool {
		return confirmed
	})
	s.respond(w, r, "delete row", err)
}

func (s *Server) handleOpenLightbox(w http.ResponseWriter, r *http.Request) {
	err := controllerFrom(r.Context()).OpenLightbox(pathParam(r, "id"), pathParam(r, "column"))
	s.respond(w, r, "open lightbox", err)
}

// handleEditorImage opens the lightbox on the edited row's primary image.
func (s *Server) handleEditorImage(w http.ResponseWriter, r *http.Request) {
	err := controllerFrom(r.Context()).OpenEditorLightbox()
	s.respond(w, r, "editor image", err)
}

func (s *Server) handleCloseLightbox(w http.ResponseWriter, r *http.Request) {
	controllerFrom(r.Context()).CloseLightbox()
	s.respond(w, r, "close lightbox", nil)
}
