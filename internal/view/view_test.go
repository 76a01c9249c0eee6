package view

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

var display = dataapi.DisplayConfig{
	Hidden:           []string{"internal"},
	Labels:           map[string]string{"name": "Nombre", "photo": "Foto"},
	ThumbnailColumns: []string{"photo", "ficha"},
	UploadFields: map[string]dataapi.UploadField{
		"photo":  {Type: dataapi.UploadImage, Accept: "image/*"},
		"manual": {Type: dataapi.UploadFile, Accept: "application/pdf"},
	},
	ImageFields: []string{"photo"},
}

func text(s string) core.Value   { return core.Value{Kind: core.KindText, Raw: s} }
func upload(s string) core.Value { return core.Value{Kind: core.KindUpload, Raw: s} }

func sampleState() core.State {
	return core.State{
		Tables: []dataapi.TableDescriptor{
			{ID: "cojines", Label: "Cojines", Display: display},
			{ID: "fundas", Label: "Fundas"},
		},
		ActiveTable: "cojines",
		PrimaryKey:  "id",
		Columns:     []string{"id", "name", "color", "internal", "photo"},
		Rows: []core.Row{
			{"id": text("1"), "name": text("Cojín"), "color": {}, "photo": upload("https://cdn/1.jpg")},
			{"id": text("2"), "name": text("https://tienda/2"), "color": text("azul"), "photo": {}},
		},
		Display:        display,
		Page:           1,
		PerPage:        25,
		Total:          60,
		PerPageOptions: []int{10, 25, 50},
		Status:         core.Status{Message: "Mostrando 2 registro(s) de 60.", Tone: core.ToneSuccess},
	}
}

func TestVisibleColumns(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		display dataapi.DisplayConfig
		want    []string
	}{
		{
			name:    "image moved to third position",
			columns: []string{"id", "name", "color", "internal", "photo"},
			display: display,
			want:    []string{"id", "name", "photo", "color"},
		},
		{
			name:    "short list appends image",
			columns: []string{"photo", "id"},
			display: display,
			want:    []string{"id", "photo"},
		},
		{
			name:    "image only",
			columns: []string{"photo"},
			display: display,
			want:    []string{"photo"},
		},
		{
			name:    "no image field",
			columns: []string{"a", "b", "c"},
			display: dataapi.DisplayConfig{Hidden: []string{"b"}},
			want:    []string{"a", "c"},
		},
		{
			name:    "image field hidden",
			columns: []string{"a", "photo"},
			display: dataapi.DisplayConfig{Hidden: []string{"photo"}, ImageFields: []string{"photo"}},
			want:    []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, VisibleColumns(tt.columns, tt.display)); diff != "" {
				t.Errorf("VisibleColumns() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildCell(t *testing.T) {
	tests := []struct {
		name  string
		col   string
		value core.Value
		want  Cell
	}{
		{
			name:  "image thumbnail opens lightbox",
			col:   "photo",
			value: upload("https://cdn/1.jpg"),
			want:  Cell{Kind: CellImage, Column: "photo", Label: "Foto", URL: "https://cdn/1.jpg", Alt: "photo", Lightbox: true},
		},
		{
			name:  "empty upload",
			col:   "photo",
			value: core.Value{},
			want:  Cell{Kind: CellNoFile, Column: "photo", Label: "Foto", Text: NoFileText, Lightbox: true},
		},
		{
			name:  "pdf in thumbnail column",
			col:   "ficha",
			value: text("https://cdn/ficha.PDF "),
			want:  Cell{Kind: CellPDF, Column: "ficha", Label: "ficha", Text: PDFText, URL: "https://cdn/ficha.PDF "},
		},
		{
			name:  "file upload shows file name",
			col:   "manual",
			value: upload("https://cdn/docs/manual-v2.zip"),
			want:  Cell{Kind: CellLink, Column: "manual", Label: "manual", Text: "manual-v2.zip", URL: "https://cdn/docs/manual-v2.zip", Lightbox: true},
		},
		{
			name:  "url",
			col:   "name",
			value: core.Value{Kind: core.KindURL, Raw: "https://tienda/2"},
			want:  Cell{Kind: CellLink, Column: "name", Label: "Nombre", Text: "https://tienda/2", URL: "https://tienda/2"},
		},
		{
			name:  "null",
			col:   "color",
			value: core.Value{},
			want:  Cell{Kind: CellEmpty, Column: "color", Label: "color", Text: EmptyCellText},
		},
		{
			name:  "number",
			col:   "price",
			value: core.Value{Kind: core.KindNumber, Raw: "12.50"},
			want:  Cell{Kind: CellText, Column: "price", Label: "price", Text: "12.50"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, BuildCell(tt.col, tt.value, "1", display)); diff != "" {
				t.Errorf("BuildCell() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildGrid(t *testing.T) {
	v := BuildGrid(sampleState())

	if v.Title != "Cojines" || v.Meta != "Cojines · 60 registro(s)" {
		t.Errorf("Title = %q, Meta = %q", v.Title, v.Meta)
	}
	wantCols := []Column{
		{Name: "id", Label: "id"},
		{Name: "name", Label: "Nombre"},
		{Name: "photo", Label: "Foto"},
		{Name: "color", Label: "color"},
	}
	if diff := cmp.Diff(wantCols, v.Columns); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
	if len(v.Rows) != 2 || v.Rows[1].ID != "2" {
		t.Fatalf("Rows = %+v", v.Rows)
	}
	if got := v.Rows[1].Cells[2].Kind; got != CellNoFile {
		t.Errorf("empty photo cell kind = %v, want CellNoFile", got)
	}
	if !v.Tables[0].Selected || v.Tables[1].Selected || v.TablesDisabled {
		t.Errorf("Tables = %+v", v.Tables)
	}
	if v.Status.Tone != "success" {
		t.Errorf("Status = %+v", v.Status)
	}
	if v.Editor != nil || v.Lightbox != nil {
		t.Error("overlays built while closed")
	}
}

func TestBuildGrid_EmptyStates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.State)
		want   string
	}{
		{
			name:   "no table",
			mutate: func(s *core.State) { s.ActiveTable = "" },
			want:   EmptyNoTable,
		},
		{
			name:   "no rows",
			mutate: func(s *core.State) { s.Rows = nil },
			want:   EmptyNoRows,
		},
		{
			name:   "every column hidden",
			mutate: func(s *core.State) { s.Columns = []string{"internal"} },
			want:   EmptyNoColumns,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleState()
			tt.mutate(&s)
			v := BuildGrid(s)
			if v.Empty != tt.want {
				t.Errorf("Empty = %q, want %q", v.Empty, tt.want)
			}
			if len(v.Rows) != 0 {
				t.Errorf("Rows built for empty state: %d", len(v.Rows))
			}
		})
	}
}

func TestBuildGrid_NoTables(t *testing.T) {
	v := BuildGrid(core.State{Page: 1, PerPage: 25})
	if !v.TablesDisabled || len(v.Tables) != 1 || v.Tables[0].Label != NoTablesOption {
		t.Errorf("Tables = %+v, disabled = %v", v.Tables, v.TablesDisabled)
	}
	if v.Title != DefaultTitle {
		t.Errorf("Title = %q", v.Title)
	}
	if v.Status.Tone != "muted" {
		t.Errorf("Status tone = %q, want muted", v.Status.Tone)
	}
}

func TestPager(t *testing.T) {
	tests := []struct {
		name                  string
		page, perPage, total  int
		wantIndicator         string
		wantPrevDis, wantNext bool
	}{
		{"first of three", 1, 25, 60, "1 / 3", true, false},
		{"middle", 2, 25, 60, "2 / 3", false, false},
		{"last", 3, 25, 60, "3 / 3", false, true},
		{"exact multiple", 2, 25, 50, "2 / 2", false, true},
		{"empty table", 1, 25, 0, "1 / 1", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleState()
			s.Page, s.PerPage, s.Total = tt.page, tt.perPage, tt.total
			p := BuildGrid(s).Pager
			if p.Indicator != tt.wantIndicator {
				t.Errorf("Indicator = %q, want %q", p.Indicator, tt.wantIndicator)
			}
			if p.PrevDisabled != tt.wantPrevDis || p.NextDisabled != tt.wantNext {
				t.Errorf("PrevDisabled = %v, NextDisabled = %v", p.PrevDisabled, p.NextDisabled)
			}
		})
	}

	p := BuildGrid(sampleState()).Pager
	want := []PerPageOption{{10, false}, {25, true}, {50, false}}
	if diff := cmp.Diff(want, p.PerPage); diff != "" {
		t.Errorf("PerPage options mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEditor(t *testing.T) {
	s := sampleState()
	if BuildEditor(s) != nil {
		t.Fatal("editor built while closed")
	}

	long := strings.Repeat("ñ", 61)
	s.EditingRow = core.Row{"id": text("1"), "name": text(long), "color": {}, "photo": upload("https://cdn/1.jpg")}
	s.OriginalRow = s.EditingRow.Clone()
	s.EditorError = "Valor inválido"
	s.LongTextThreshold = 60

	e := BuildEditor(s)
	if e == nil {
		t.Fatal("BuildEditor() = nil")
	}
	if e.Title != "Editar registro (id: 1)" || e.Subtitle != "Tabla cojines" {
		t.Errorf("Title = %q, Subtitle = %q", e.Title, e.Subtitle)
	}
	if e.Error != "Valor inválido" || !e.ImageButton {
		t.Errorf("Error = %q, ImageButton = %v", e.Error, e.ImageButton)
	}

	byName := make(map[string]Field)
	var names []string
	for _, f := range e.Fields {
		byName[f.Name] = f
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"id", "name", "color", "photo"}, names); diff != "" {
		t.Errorf("field order mismatch (-want +got):\n%s", diff)
	}
	if byName["name"].Input != InputTextarea {
		t.Error("61-rune value should be a textarea")
	}
	if byName["color"].Input != InputText || byName["color"].Value != "" {
		t.Errorf("color field = %+v", byName["color"])
	}
	photo := byName["photo"]
	if photo.Input != InputHidden || !photo.Upload || photo.Accept != "image/*" || photo.Hint == "" {
		t.Errorf("photo field = %+v", photo)
	}
	if photo.Preview == nil || photo.Preview.Kind != CellImage {
		t.Errorf("photo preview = %+v", photo.Preview)
	}
}

func TestBuildEditor_ThresholdIsExclusive(t *testing.T) {
	s := sampleState()
	s.EditingRow = core.Row{"id": text("1"), "name": text(strings.Repeat("a", 60))}
	s.OriginalRow = s.EditingRow.Clone()
	s.LongTextThreshold = 60

	for _, f := range BuildEditor(s).Fields {
		if f.Name == "name" && f.Input != InputText {
			t.Error("60-rune value should stay a text input")
		}
	}
}

func TestBuildLightbox(t *testing.T) {
	s := sampleState()
	if BuildLightbox(s) != nil {
		t.Fatal("lightbox built while closed")
	}

	s.Lightbox = core.Lightbox{Phase: core.LightboxPreviewing, URL: "https://cdn/1.jpg", RowID: "1", Column: "photo"}
	want := &LightboxView{
		RowID:  "1",
		Column: "photo",
		URL:    "https://cdn/1.jpg",
		Alt:    "Vista previa (1)",
		Accept: "image/*",
		Image:  true,
	}
	if diff := cmp.Diff(want, BuildLightbox(s)); diff != "" {
		t.Errorf("BuildLightbox() mismatch (-want +got):\n%s", diff)
	}

	s.Lightbox = core.Lightbox{Phase: core.LightboxUploading, RowID: "2", Column: "manual"}
	got := BuildLightbox(s)
	if !got.Empty || got.EmptyText == "" || !got.Uploading || got.Image || got.Accept != "application/pdf" {
		t.Errorf("BuildLightbox() = %+v", got)
	}

	s.Lightbox = core.Lightbox{Phase: core.LightboxPreviewing, URL: "https://cdn/m.pdf", RowID: "2", Column: "manual"}
	if got := BuildLightbox(s); !got.PDF {
		t.Errorf("PDF = false for %q", got.URL)
	}
}
