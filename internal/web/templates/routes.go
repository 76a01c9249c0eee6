// Package templates holds the templ components of the data admin UI.
//
// The *_templ.go files are generated from the .templ sources; edit those
// and regenerate.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"net/url"

	"github.com/a-h/templ"
)

// GridID is the element swapped by partial (HX-Request) responses.
const GridID = "grid"

// Row routes. Each segment is escaped because ids come from row data.

func rowPath(id string, rest ...string) templ.SafeURL {
	p := "/grid/rows/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return templ.SafeURL(p)
}

// filePath is the lightbox route of one upload-field cell.
func filePath(id, column string) templ.SafeURL { return rowPath(id, "files", column) }

func editPath(id string) templ.SafeURL { return rowPath(id, "edit") }

func deletePath(id string) templ.SafeURL { return rowPath(id, "delete") }
