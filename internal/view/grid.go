// Package view turns a grid snapshot into render-ready view models.
//
// Everything here is a pure function of core.State: no I/O, no clocks, no
// mutation of the snapshot. Templates only ever read the structs built here.
package view

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// Fixed interface text.
const (
	ActionsLabel    = "Acciones"
	EditLabel       = "Editar"
	DeleteLabel     = "Eliminar"
	NoFileText      = "Sin archivo"
	EmptyCellText   = "—"
	PDFText         = "PDF"
	NoTablesOption  = "Sin tablas configuradas"
	DefaultTitle    = "Tabla seleccionada"
	EmptyNoTable    = "Selecciona una tabla para comenzar."
	EmptyNoRows     = "Sin datos disponibles."
	EmptyNoColumns  = "No hay columnas visibles."
	metaTemplate    = "%s · %d registro(s)"
	pagerTemplate   = "%d / %d"
	previewAltTmpl  = "Vista previa (%s)"
	imageFieldHint  = "Haz clic para abrir o reemplazar."
	editorTitleTmpl = "Editar registro (%s: %s)"
	editorSubTmpl   = "Tabla %s"
)

// CellKind selects how a cell renders.
type CellKind int

const (
	CellText CellKind = iota
	CellEmpty
	CellLink
	CellImage
	CellPDF
	CellNoFile
)

// Cell is one rendered grid value.
type Cell struct {
	Kind   CellKind
	Column string
	Label  string // column label, used as data-label on narrow screens
	Text   string
	URL    string
	Alt    string

	// Lightbox is set for upload-field cells, which open the file lightbox
	// instead of linking out.
	Lightbox bool
}

// Column is a visible column header.
type Column struct {
	Name  string
	Label string
}

// RowView is one grid row.
type RowView struct {
	ID    string
	Cells []Cell
}

// TableOption is an entry of the table selector.
type TableOption struct {
	ID       string
	Label    string
	Selected bool
}

// PerPageOption is an entry of the page-size selector.
type PerPageOption struct {
	Value    int
	Selected bool
}

// Pager describes the pagination controls.
type Pager struct {
	Page         int
	TotalPages   int
	Indicator    string
	PrevDisabled bool
	NextDisabled bool
	PerPage      []PerPageOption
}

// Status is the status line.
type Status struct {
	Message string
	Tone    string
}

// GridView is everything the grid page shows.
type GridView struct {
	Title       string
	Meta        string
	ActiveTable string
	Tables      []TableOption
	// TablesDisabled is set when there is nothing to choose from.
	TablesDisabled bool

	Columns []Column
	Rows    []RowView
	// Empty replaces the table body when set.
	Empty string

	Pager  Pager
	Status Status

	Editor   *EditorView
	Lightbox *LightboxView
}

// BuildGrid builds the grid view model, including the editor and lightbox
// overlays when they are open.
func BuildGrid(s core.State) GridView {
	label := DefaultTitle
	if desc, ok := s.ActiveDescriptor(); ok && desc.Label != "" {
		label = desc.Label
	}

	v := GridView{
		Title:       label,
		Meta:        fmt.Sprintf(metaTemplate, label, s.Total),
		ActiveTable: s.ActiveTable,
		Pager:       buildPager(s),
		Status:      Status{Message: s.Status.Message, Tone: string(s.Status.Tone)},
		Editor:      BuildEditor(s),
		Lightbox:    BuildLightbox(s),
	}
	if v.Status.Tone == "" {
		v.Status.Tone = string(core.ToneMuted)
	}

	if len(s.Tables) == 0 {
		v.Tables = []TableOption{{Label: NoTablesOption}}
		v.TablesDisabled = true
	}
	for _, t := range s.Tables {
		v.Tables = append(v.Tables, TableOption{ID: t.ID, Label: t.Label, Selected: t.ID == s.ActiveTable})
	}

	switch {
	case s.ActiveTable == "":
		v.Empty = EmptyNoTable
		return v
	case len(s.Rows) == 0:
		v.Empty = EmptyNoRows
		return v
	}

	cols := VisibleColumns(s.Columns, s.Display)
	if len(cols) == 0 {
		v.Empty = EmptyNoColumns
		return v
	}

	v.Columns = make([]Column, len(cols))
	for i, col := range cols {
		v.Columns[i] = Column{Name: col, Label: s.Display.Label(col)}
	}

	v.Rows = make([]RowView, len(s.Rows))
	for i, row := range s.Rows {
		id := s.RowID(row)
		cells := make([]Cell, len(cols))
		for j, col := range cols {
			cells[j] = BuildCell(col, row.Get(col), id, s.Display)
		}
		v.Rows[i] = RowView{ID: id, Cells: cells}
	}
	return v
}

// VisibleColumns drops hidden columns and moves the primary image field to
// position min(2, len) so the picture sits next to the identifying columns.
func VisibleColumns(columns []string, display dataapi.DisplayConfig) []string {
	visible := make([]string, 0, len(columns))
	for _, col := range columns {
		if !display.IsHidden(col) {
			visible = append(visible, col)
		}
	}

	image := display.PrimaryImageField()
	at := -1
	for i, col := range visible {
		if col == image {
			at = i
			break
		}
	}
	if image == "" || at < 0 {
		return visible
	}

	rest := append(visible[:at:at], visible[at+1:]...)
	insert := min(2, len(rest))
	out := make([]string, 0, len(visible))
	out = append(out, rest[:insert]...)
	out = append(out, image)
	out = append(out, rest[insert:]...)
	return out
}

// BuildCell renders one value of column col in row rowID.
func BuildCell(col string, v core.Value, rowID string, display dataapi.DisplayConfig) Cell {
	c := Cell{Column: col, Label: display.Label(col)}
	_, upload := display.UploadField(col)
	text := v.String()

	if display.IsThumbnail(col) || upload {
		c.Lightbox = upload
		switch {
		case v.IsEmpty():
			c.Kind, c.Text = CellNoFile, NoFileText
		case IsPDF(text):
			c.Kind, c.Text, c.URL = CellPDF, PDFText, text
		case display.IsThumbnail(col):
			c.Kind, c.URL, c.Alt = CellImage, text, col
		default:
			c.Kind, c.Text, c.URL = CellLink, fileName(text), text
		}
		return c
	}

	switch {
	case v.IsEmpty():
		c.Kind, c.Text = CellEmpty, EmptyCellText
	case v.Kind == core.KindURL:
		c.Kind, c.Text, c.URL = CellLink, text, text
	default:
		c.Kind, c.Text = CellText, text
	}
	return c
}

// IsPDF reports whether a file reference points at a PDF.
func IsPDF(url string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(url)), ".pdf")
}

func fileName(url string) string {
	if i := strings.LastIndexByte(url, '/'); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return url
}

func buildPager(s core.State) Pager {
	pages := s.TotalPages()
	p := Pager{
		Page:         s.Page,
		TotalPages:   pages,
		Indicator:    fmt.Sprintf(pagerTemplate, s.Page, pages),
		PrevDisabled: s.Page <= 1,
		NextDisabled: s.Page*s.PerPage >= s.Total,
	}
	for _, n := range s.PerPageOptions {
		p.PerPage = append(p.PerPage, PerPageOption{Value: n, Selected: n == s.PerPage})
	}
	return p
}
