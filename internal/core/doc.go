// Package core holds the data-admin grid controller.
//
// A [Controller] owns the state of one grid view: the table list, the active
// table and its current page, the row editor and the file lightbox. Every
// operation talks to the upstream data API through the [API] interface and
// only touches state once the server has answered. Renderers read copies of
// the state via [Controller.Snapshot].
//
// # Page loads
//
// [Controller.LoadRows] is the single path that replaces rows. Loads are
// fenced: each one supersedes the previous, and a superseded response is
// dropped with [ErrStaleResponse]. A page past the end, as computed from the
// response total, is clamped and requested once more.
//
// # Editing
//
// [Controller.OpenEditor] snapshots the row; [Controller.SubmitEdit] sends
// only the columns that differ from the snapshot, treating null and the empty
// string as equal ([Diff]). Identical forms send nothing.
//
// # Error Handling
//
// Technical errors are mapped to user-facing Spanish messages with [MapError].
// Each category has a code for support reference:
//
//   - API001-API004: upstream API failures (unreachable, timed out, cancelled, rate limited)
//   - AUTH001-AUTH002: authorization failures
//   - TBL001: unknown table or row
//   - FILE001: file too large or rejected
//   - UPL001: too many concurrent uploads
//   - ERR000: anything else
package core
