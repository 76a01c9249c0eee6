package core

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// OpenLightbox previews the file of one upload-field cell. An empty value
// still opens, in the upload-prompt state, so a first file can be added.
func (c *Controller) OpenLightbox(rowID, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLightboxLocked(rowID, column)
}

// OpenEditorLightbox opens the lightbox on the primary image field of the
// row being edited.
func (c *Controller) OpenEditorLightbox() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	field := c.state.Display.PrimaryImageField()
	if field == "" || c.state.EditingRow == nil {
		c.setStatus(msgNoImage, ToneError)
		return ErrNotUploadField
	}
	return c.openLightboxLocked(c.state.RowID(c.state.EditingRow), field)
}

func (c *Controller) openLightboxLocked(rowID, column string) error {
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		return ErrNoActiveTable
	}
	if _, ok := c.state.Display.UploadField(column); !ok {
		c.setStatus(msgNotUploadField, ToneError)
		return fmt.Errorf("%w: %q", ErrNotUploadField, column)
	}
	row, ok := c.findRowLocked(rowID)
	if !ok {
		c.setStatus(msgRowMissing, ToneError)
		return fmt.Errorf("%w: %q", ErrRowNotFound, rowID)
	}

	c.state.Lightbox = Lightbox{
		Phase:  LightboxPreviewing,
		URL:    row.Get(column).String(),
		RowID:  rowID,
		Column: column,
	}
	return nil
}

// CloseLightbox closes the lightbox, clearing the pending row and column
// together.
func (c *Controller) CloseLightbox() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLightboxLocked()
}

func (c *Controller) closeLightboxLocked() {
	c.state.Lightbox = Lightbox{}
}

// UploadFieldFile uploads a file for an upload-field cell. Nothing local
// changes until the server confirms; then the row, the open editor (if it
// shows that row) and the lightbox pick up the new URL in place, and the
// page is reloaded to keep the grid consistent. On failure the previous
// file reference is kept.
func (c *Controller) UploadFieldFile(ctx context.Context, rowID, column, filename string, r io.Reader) error {
	c.mu.Lock()
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		c.mu.Unlock()
		return ErrNoActiveTable
	}
	field, ok := c.state.Display.UploadField(column)
	if !ok {
		c.setStatus(msgNotUploadField, ToneError)
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotUploadField, column)
	}
	row, ok := c.findRowLocked(rowID)
	if !ok {
		c.setStatus(msgRowMissing, ToneError)
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRowNotFound, rowID)
	}

	table := c.state.ActiveTable
	oldURL := row.Get(column).String()
	uploading, failed, updated := msgUploadingFile, msgFileFailed, msgFileUpdated
	if field.Type == dataapi.UploadImage {
		uploading, failed, updated = msgUploadingImage, msgImageFailed, msgImageUpdated
	}
	if c.lightboxOnLocked(rowID, column) {
		c.state.Lightbox.Phase = LightboxUploading
	}
	c.setStatus(uploading, ToneInfo)
	c.mu.Unlock()

	result, err := c.api.UploadFile(ctx, table, rowID, column, filename, r)

	c.mu.Lock()
	if c.lightboxOnLocked(rowID, column) {
		c.state.Lightbox.Phase = LightboxPreviewing
	}
	if err != nil {
		c.fail(ctx, "upload file", err, failed)
		c.mu.Unlock()
		return err
	}
	if c.state.ActiveTable == table && result.URL != "" {
		c.patchUploadLocked(rowID, column, result.URL)
	}
	c.mu.Unlock()

	e := audit.NewEntry(ctx, audit.ActionFileUpload, table)
	e.RowKey = rowID
	e.ColumnName = column
	e.OldValue = oldURL
	e.NewValue = result.URL
	c.record(ctx, e)

	return c.reloadAfter(ctx, updated)
}

// patchUploadLocked writes a confirmed upload URL into every view of the row.
// The original snapshot is patched too, so the upload is not reported as a
// pending edit.
func (c *Controller) patchUploadLocked(rowID, column, url string) {
	v := uploadValue(url)
	for i, row := range c.state.Rows {
		if c.state.RowID(row) == rowID {
			patched := row.Clone()
			patched[column] = v
			c.state.Rows[i] = patched
		}
	}
	if c.state.EditingRow != nil && c.state.RowID(c.state.EditingRow) == rowID {
		c.state.EditingRow[column] = v
		if c.state.OriginalRow != nil {
			c.state.OriginalRow[column] = v
		}
	}
	if c.lightboxOnLocked(rowID, column) {
		c.state.Lightbox.URL = url
	}
}

func (c *Controller) lightboxOnLocked(rowID, column string) bool {
	lb := c.state.Lightbox
	return lb.Open() && lb.RowID == rowID && lb.Column == column
}
