package view

import (
	"fmt"
	"unicode/utf8"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// InputKind selects the form control of an editor field.
type InputKind int

const (
	InputText InputKind = iota
	InputTextarea
	InputHidden
)

// Field is one editor form field.
type Field struct {
	Name  string
	Label string
	Value string
	Input InputKind

	// Upload fields carry their value in a hidden input and show a preview
	// that opens the lightbox.
	Upload  bool
	Accept  string
	Preview *Cell
	Hint    string
}

// EditorView is the row editor dialog.
type EditorView struct {
	RowID    string
	Title    string
	Subtitle string
	Fields   []Field
	Error    string

	// ImageButton shows the "manage image" action for tables with an image field.
	ImageButton bool
}

// BuildEditor returns the editor for the row being edited, or nil.
func BuildEditor(s core.State) *EditorView {
	if !s.EditorOpen() {
		return nil
	}
	id := s.RowID(s.EditingRow)
	e := &EditorView{
		RowID:       id,
		Title:       fmt.Sprintf(editorTitleTmpl, s.PrimaryKey, id),
		Subtitle:    fmt.Sprintf(editorSubTmpl, s.ActiveTable),
		Error:       s.EditorError,
		ImageButton: s.Display.PrimaryImageField() != "",
	}

	threshold := s.LongTextThreshold
	if threshold <= 0 {
		threshold = core.DefaultLongTextThreshold
	}

	for _, col := range s.EditableColumns() {
		e.Fields = append(e.Fields, buildField(col, s.EditingRow.Get(col), id, s.Display, threshold))
	}
	return e
}

func buildField(col string, v core.Value, rowID string, display dataapi.DisplayConfig, threshold int) Field {
	f := Field{
		Name:  col,
		Label: display.Label(col),
		Value: v.String(),
	}

	if upload, ok := display.UploadField(col); ok {
		preview := BuildCell(col, v, rowID, display)
		f.Input = InputHidden
		f.Upload = true
		f.Accept = upload.Accept
		f.Preview = &preview
		if display.IsImageField(col) {
			f.Hint = imageFieldHint
		}
		return f
	}

	if display.IsThumbnail(col) && !v.IsEmpty() {
		preview := BuildCell(col, v, rowID, display)
		f.Preview = &preview
	}
	if utf8.RuneCountInString(f.Value) > threshold {
		f.Input = InputTextarea
	}
	return f
}
