package view

import (
	"fmt"

	"github.com/JonMunkholm/dataadmin/internal/core"
)

// EmptyFileText prompts for a first upload when the cell has no file.
const EmptyFileText = "Este registro aún no tiene archivo. Sube uno para continuar."

// LightboxView is the file preview overlay.
type LightboxView struct {
	RowID  string
	Column string
	URL    string
	Alt    string

	Empty     bool
	EmptyText string
	PDF       bool
	Uploading bool

	// Accept is the file input filter, e.g. "image/*".
	Accept string
	// Image is set when the column holds pictures rather than generic files.
	Image bool
}

// BuildLightbox returns the lightbox view, or nil when it is closed.
func BuildLightbox(s core.State) *LightboxView {
	lb := s.Lightbox
	if !lb.Open() {
		return nil
	}
	v := &LightboxView{
		RowID:     lb.RowID,
		Column:    lb.Column,
		URL:       lb.URL,
		Alt:       fmt.Sprintf(previewAltTmpl, lb.RowID),
		Empty:     lb.Empty(),
		PDF:       lb.URL != "" && IsPDF(lb.URL),
		Uploading: lb.Phase == core.LightboxUploading,
		Image:     s.Display.IsImageField(lb.Column),
	}
	if v.Empty {
		v.EmptyText = EmptyFileText
	}
	if upload, ok := s.Display.UploadField(lb.Column); ok {
		v.Accept = upload.Accept
	}
	return v
}
