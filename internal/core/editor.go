package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/JonMunkholm/dataadmin/internal/audit"
)

// OpenEditor opens the editor for the row with primary key id, replacing
// any editor already open. The row is snapshotted for diffing on submit.
func (c *Controller) OpenEditor(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		return ErrNoActiveTable
	}

	var found Row
	for _, row := range c.state.Rows {
		if c.state.RowID(row) == id {
			found = row
			break
		}
	}
	if found == nil {
		c.setStatus(msgRowMissing, ToneError)
		return fmt.Errorf("%w: %q", ErrRowNotFound, id)
	}

	c.closeLightboxLocked()
	c.state.EditingRow = found.Clone()
	c.state.OriginalRow = found.Clone()
	c.state.EditorError = ""
	return nil
}

// CloseEditor closes the editor and the lightbox.
func (c *Controller) CloseEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeEditorLocked()
}

func (c *Controller) closeEditorLocked() {
	c.state.EditingRow = nil
	c.state.OriginalRow = nil
	c.state.EditorError = ""
	c.closeLightboxLocked()
}

// EditableColumns returns the columns shown in the editor form: every
// column that is not hidden, in server order.
func (s State) EditableColumns() []string {
	cols := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		if !s.Display.IsHidden(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Diff compares submitted form values with the snapshot taken when the
// editor opened. Only columns whose normalized value changed are returned;
// null and "" are equal. An empty submitted value becomes nil (JSON null).
func Diff(original Row, form map[string]string) map[string]any {
	changes := make(map[string]any)
	for col, submitted := range form {
		newText, newSet := submitted, submitted != ""
		oldText, oldSet := original.Get(col).comparable()
		if newSet == oldSet && newText == oldText {
			continue
		}
		if newSet {
			changes[col] = submitted
		} else {
			changes[col] = nil
		}
	}
	return changes
}

// SubmitEdit sends the changed columns of the open editor as a partial
// update. An empty diff sends nothing. On success the editor closes and the
// page reloads; on failure the editor stays open with EditorError set and
// no local state is touched.
func (c *Controller) SubmitEdit(ctx context.Context, form map[string]string) error {
	c.mu.Lock()
	if c.state.ActiveTable == "" || c.state.EditingRow == nil {
		c.mu.Unlock()
		return ErrNoEditor
	}

	changes := Diff(c.state.OriginalRow, form)
	if len(changes) == 0 {
		c.setStatus(msgNoChanges, ToneInfo)
		c.mu.Unlock()
		return nil
	}

	table := c.state.ActiveTable
	id := c.state.RowID(c.state.EditingRow)
	original := c.state.OriginalRow.Clone()
	c.state.EditorError = ""
	c.setStatus(msgSaving, ToneInfo)
	c.mu.Unlock()

	err := c.api.PatchRow(ctx, table, id, changes)

	c.mu.Lock()
	if err != nil {
		msg := statusText(err, msgSaveFailed)
		if c.editingLocked(table, id) {
			c.state.EditorError = msg
		}
		c.fail(ctx, "submit edit", err, msgSaveFailed)
		c.mu.Unlock()
		return err
	}
	if c.editingLocked(table, id) {
		c.closeEditorLocked()
	}
	c.mu.Unlock()

	for _, col := range sortedKeys(changes) {
		e := audit.NewEntry(ctx, audit.ActionCellEdit, table)
		e.RowKey = id
		e.ColumnName = col
		e.OldValue = original.Get(col).String()
		if v, ok := changes[col].(string); ok {
			e.NewValue = v
		}
		c.record(ctx, e)
	}

	return c.reloadAfter(ctx, msgSaved)
}

// editingLocked reports whether the editor is still open on table/id.
func (c *Controller) editingLocked(table, id string) bool {
	return c.state.EditingRow != nil &&
		c.state.ActiveTable == table &&
		c.state.RowID(c.state.EditingRow) == id
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
