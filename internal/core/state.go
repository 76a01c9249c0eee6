package core

import "github.com/JonMunkholm/dataadmin/internal/dataapi"

// Tone is the visual weight of a status message.
type Tone string

const (
	ToneMuted   Tone = "muted"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Status is the single human-readable line describing the last operation.
type Status struct {
	Message string
	Tone    Tone
}

// LightboxPhase is the state of the file lightbox.
//
//	closed -> previewing(url, row, column) -> uploading -> previewing(newURL) | closed
type LightboxPhase int

const (
	LightboxClosed LightboxPhase = iota
	LightboxPreviewing
	LightboxUploading
)

// Lightbox holds the pending row/column pair. RowID and Column are always
// set together or cleared together.
type Lightbox struct {
	Phase  LightboxPhase
	URL    string
	RowID  string
	Column string
}

// Open reports whether the lightbox is visible.
func (l Lightbox) Open() bool { return l.Phase != LightboxClosed }

// Empty reports whether the lightbox shows the "no file yet" prompt.
func (l Lightbox) Empty() bool { return l.Open() && l.URL == "" }

// State is everything one grid view knows. It is owned by a Controller;
// callers only ever see copies from Controller.Snapshot.
type State struct {
	Tables      []dataapi.TableDescriptor
	ActiveTable string
	PrimaryKey  string
	Columns     []string
	Rows        []Row
	Display     dataapi.DisplayConfig

	Page    int
	PerPage int
	Total   int

	// EditingRow and OriginalRow are both nil or both set.
	EditingRow  Row
	OriginalRow Row
	EditorError string

	Lightbox Lightbox
	Status   Status

	// PerPageOptions lists the page sizes offered to the user.
	PerPageOptions []int
	// LongTextThreshold is the length above which editor fields are multi-line.
	LongTextThreshold int
}

// TotalPages is ceil(total/perPage), never less than one.
func (s State) TotalPages() int {
	return totalPages(s.Total, s.PerPage)
}

// EditorOpen reports whether a row is being edited.
func (s State) EditorOpen() bool { return s.EditingRow != nil }

// ActiveDescriptor returns the descriptor of the active table.
func (s State) ActiveDescriptor() (dataapi.TableDescriptor, bool) {
	return findTable(s.Tables, s.ActiveTable)
}

// RowID returns the primary-key text of row.
func (s State) RowID(row Row) string {
	return row.Get(s.PrimaryKey).String()
}

// clone returns a deep copy safe to hand to renderers.
func (s State) clone() State {
	out := s
	out.Tables = make([]dataapi.TableDescriptor, len(s.Tables))
	for i, t := range s.Tables {
		out.Tables[i] = dataapi.TableDescriptor{ID: t.ID, Label: t.Label, Display: t.Display.Clone()}
	}
	out.Columns = append([]string(nil), s.Columns...)
	out.Rows = make([]Row, len(s.Rows))
	for i, r := range s.Rows {
		out.Rows[i] = r.Clone()
	}
	out.Display = s.Display.Clone()
	out.EditingRow = s.EditingRow.Clone()
	out.OriginalRow = s.OriginalRow.Clone()
	out.PerPageOptions = append([]int(nil), s.PerPageOptions...)
	return out
}

func totalPages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func clampPage(page, pages int) int {
	if page < 1 {
		return 1
	}
	if page > pages {
		return pages
	}
	return page
}

func findTable(tables []dataapi.TableDescriptor, id string) (dataapi.TableDescriptor, bool) {
	for _, t := range tables {
		if t.ID == id {
			return t, true
		}
	}
	return dataapi.TableDescriptor{}, false
}
