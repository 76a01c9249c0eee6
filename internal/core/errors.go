package core

import "errors"

var (
	// ErrNoTables is the terminal empty state: the API has no tables configured.
	ErrNoTables = errors.New("no tables configured")

	// ErrNoActiveTable is returned by operations that need a selected table.
	ErrNoActiveTable = errors.New("no active table")

	// ErrUnknownTable is returned when selecting a table id the API did not list.
	ErrUnknownTable = errors.New("unknown table")

	// ErrRowNotFound is returned when a row id is not on the current page.
	ErrRowNotFound = errors.New("row not found")

	// ErrNoEditor is returned by SubmitEdit when no row is being edited.
	ErrNoEditor = errors.New("no row is being edited")

	// ErrNotUploadField is returned for upload/lightbox calls on a column
	// that is not an upload field.
	ErrNotUploadField = errors.New("column is not an upload field")

	// ErrNoImportFile is returned by ImportCSV without a file.
	ErrNoImportFile = errors.New("no import file")

	// ErrStaleResponse marks a page load that was superseded by a newer one.
	// Its response is discarded and it never changes the status line.
	ErrStaleResponse = errors.New("stale page response discarded")
)
