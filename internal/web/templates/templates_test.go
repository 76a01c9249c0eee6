package templates

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataadmin/internal/view"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func sampleGrid() view.GridView {
	return view.GridView{
		Title:       "Cojines",
		Meta:        "Cojines · 2 registro(s)",
		ActiveTable: "cojines",
		Tables: []view.TableOption{
			{ID: "cojines", Label: "Cojines", Selected: true},
			{ID: "fundas", Label: "Fundas"},
		},
		Columns: []view.Column{{Name: "name", Label: "Nombre"}, {Name: "web", Label: "Web"}, {Name: "photo", Label: "Foto"}},
		Rows: []view.RowView{
			{ID: "a/b", Cells: []view.Cell{
				{Kind: view.CellText, Column: "name", Label: "Nombre", Text: "<b>x</b>"},
				{Kind: view.CellLink, Column: "web", Label: "Web", Text: "malo", URL: "javascript:alert(1)"},
				{Kind: view.CellImage, Column: "photo", Label: "Foto", URL: "https://cdn/x.jpg", Alt: "photo", Lightbox: true},
			}},
		},
		Pager: view.Pager{
			Page: 1, TotalPages: 3, Indicator: "1 / 3", PrevDisabled: true,
			PerPage: []view.PerPageOption{{Value: 10}, {Value: 25, Selected: true}},
		},
		Status: view.Status{Message: "Listo", Tone: "success"},
	}
}

func TestGrid_RendersRowsEscaped(t *testing.T) {
	doc := render(t, Grid(sampleGrid()))

	if got := doc.Find("#dataStatus").AttrOr("class", ""); got != "data-admin__status is-success" {
		t.Errorf("status class = %q", got)
	}

	row := doc.Find("#dataTableBody tr").First()
	if got := row.AttrOr("data-id", ""); got != "a/b" {
		t.Errorf("data-id = %q", got)
	}
	if got := row.Find("td").Eq(1).Text(); got != "<b>x</b>" {
		t.Errorf("text cell = %q, want literal markup", got)
	}
	if row.Find("td b").Length() != 0 {
		t.Error("cell text was not escaped")
	}
	if got := row.Find(`a[data-action="edit"]`).AttrOr("href", ""); got != "/grid/rows/a%2Fb/edit" {
		t.Errorf("edit href = %q", got)
	}
	if got := row.Find("a.data-admin__thumbnail").AttrOr("href", ""); got != "/grid/rows/a%2Fb/files/photo" {
		t.Errorf("lightbox href = %q", got)
	}
	if href := row.Find("td").Eq(2).Find("a").AttrOr("href", ""); strings.HasPrefix(href, "javascript:") {
		t.Errorf("unsafe URL rendered: %q", href)
	}
}

func TestGrid_Pager(t *testing.T) {
	doc := render(t, Grid(sampleGrid()))

	if _, disabled := doc.Find("#dataPrevPage").Attr("disabled"); !disabled {
		t.Error("prev should be disabled on page 1")
	}
	if _, disabled := doc.Find("#dataNextPage").Attr("disabled"); disabled {
		t.Error("next should be enabled")
	}
	if got := doc.Find(`input[name="page"]`).AttrOr("max", ""); got != "3" {
		t.Errorf("jump max = %q", got)
	}
	if got := doc.Find(`select[name="per_page"] option[selected]`).AttrOr("value", ""); got != "25" {
		t.Errorf("selected per page = %q", got)
	}
}

func TestGrid_EmptyState(t *testing.T) {
	doc := render(t, Grid(view.GridView{
		Title:          view.DefaultTitle,
		Tables:         []view.TableOption{{Label: view.NoTablesOption}},
		TablesDisabled: true,
		Empty:          view.EmptyNoTable,
		Status:         view.Status{Tone: "muted"},
	}))

	if got := doc.Find("td.empty").Text(); got != view.EmptyNoTable {
		t.Errorf("empty text = %q", got)
	}
	if _, disabled := doc.Find("#dataTableSelect").Attr("disabled"); !disabled {
		t.Error("table select should be disabled")
	}
	if doc.Find("#dataExportBtn").Length() != 0 {
		t.Error("export offered without a table")
	}
}

func TestEditor_Fields(t *testing.T) {
	preview := view.Cell{Kind: view.CellNoFile, Column: "photo", Text: view.NoFileText, Lightbox: true}
	doc := render(t, Editor(view.EditorView{
		RowID: "7",
		Title: "Editar registro (id: 7)",
		Fields: []view.Field{
			{Name: "name", Label: "Nombre", Value: "Cojín"},
			{Name: "notes", Label: "Notas", Value: "largo", Input: view.InputTextarea},
			{Name: "photo", Label: "Foto", Input: view.InputHidden, Upload: true, Preview: &preview},
		},
		Error: "No se pudo guardar el registro.",
	}))

	if got := doc.Find(`input[name="_row"]`).AttrOr("value", ""); got != "7" {
		t.Errorf("_row = %q", got)
	}
	if got := doc.Find(`textarea[name="notes"]`).Text(); got != "largo" {
		t.Errorf("textarea = %q", got)
	}
	if got := doc.Find(`input[name="photo"]`).AttrOr("type", ""); got != "hidden" {
		t.Errorf("photo input type = %q", got)
	}
	if got := doc.Find(".data-admin__preview a").AttrOr("href", ""); got != "/grid/rows/7/files/photo" {
		t.Errorf("preview href = %q", got)
	}
	if doc.Find("#dataEditorError").Length() != 1 {
		t.Error("editor error not shown")
	}
	if doc.Find("#dataEditorImageBtn").Length() != 0 {
		t.Error("image button shown without an image field")
	}
}

func TestLightbox_States(t *testing.T) {
	doc := render(t, Lightbox(view.LightboxView{RowID: "1", Column: "photo", Empty: true, EmptyText: view.EmptyFileText, Accept: "image/*"}))
	if doc.Find("#dataLightboxEmpty").Length() != 1 {
		t.Error("empty prompt missing")
	}
	if got := strings.TrimSpace(doc.Find("#dataLightboxUpload").Text()); got != "Subir archivo" {
		t.Errorf("upload label = %q", got)
	}

	doc = render(t, Lightbox(view.LightboxView{RowID: "1", Column: "ficha", URL: "https://cdn/f.pdf", PDF: true, Uploading: true}))
	if doc.Find("iframe").Length() != 1 {
		t.Error("pdf preview missing")
	}
	if _, disabled := doc.Find("#dataLightboxUpload").Attr("disabled"); !disabled {
		t.Error("upload button enabled while uploading")
	}
}

func TestDeletePage(t *testing.T) {
	doc := render(t, DeletePage("9", "¿Seguro?"))
	if got := doc.Find("form").AttrOr("action", ""); got != "/grid/rows/9/delete" {
		t.Errorf("action = %q", got)
	}
	if doc.Find(`button[value="yes"]`).Length() != 1 || doc.Find(`button[value="no"]`).Length() != 1 {
		t.Error("confirmation buttons missing")
	}
}

func TestErrorAlert(t *testing.T) {
	doc := render(t, ErrorAlert("Falló <todo>", "Reintenta", "ERR000"))
	if got := doc.Find("strong").Text(); got != "Falló <todo>" {
		t.Errorf("message = %q", got)
	}
	if !strings.Contains(doc.Find("small").Text(), "ERR000") {
		t.Error("code missing")
	}
}

func TestGridPage_WrapsGridInLayout(t *testing.T) {
	doc := render(t, GridPage(sampleGrid()))

	if got := doc.Find("title").Text(); got != "Cojines · Administración de datos" {
		t.Errorf("title = %q", got)
	}
	if doc.Find("main.data-admin > section#"+GridID).Length() != 1 {
		t.Error("grid not rendered inside the page body")
	}
}

func TestRender_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := GridPage(sampleGrid()).Render(ctx, &buf); !errors.Is(err, context.Canceled) {
		t.Fatalf("Render() error = %v, want context.Canceled", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes after cancellation", buf.Len())
	}
}
