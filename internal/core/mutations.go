package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/dataadmin/internal/audit"
)

// Confirmer asks the user a yes/no question. Returning false cancels the
// operation before any request is made.
type Confirmer func(prompt string) bool

// Always confirms every prompt. Useful for non-interactive callers.
func Always(string) bool { return true }

// DeleteRow deletes the row with primary key id after confirm approves
// DeletePrompt. A declined confirmation returns nil without a request.
func (c *Controller) DeleteRow(ctx context.Context, id string, confirm Confirmer) error {
	c.mu.Lock()
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		c.mu.Unlock()
		return ErrNoActiveTable
	}
	table := c.state.ActiveTable
	c.mu.Unlock()

	if confirm == nil || !confirm(DeletePrompt) {
		return nil
	}

	c.mu.Lock()
	c.setStatus(msgDeleting, ToneInfo)
	c.mu.Unlock()

	if err := c.api.DeleteRow(ctx, table, id); err != nil {
		c.mu.Lock()
		c.fail(ctx, "delete row", err, msgDeleteFailed)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	if c.editingLocked(table, id) {
		c.closeEditorLocked()
	}
	if lb := c.state.Lightbox; lb.Open() && lb.RowID == id {
		c.closeLightboxLocked()
	}
	c.mu.Unlock()

	e := audit.NewEntry(ctx, audit.ActionRowDelete, table)
	e.RowKey = id
	c.record(ctx, e)

	return c.reloadAfter(ctx, msgDeleted)
}

// ExportFilename is the download name for the active table's export.
func ExportFilename(table, ext string) string {
	if table == "" {
		table = "export"
	}
	return table + "." + strings.TrimPrefix(ext, ".")
}

// ExportCSV streams the active table's CSV export into w.
func (c *Controller) ExportCSV(ctx context.Context, w io.Writer) error {
	table, err := c.beginExport(msgExporting)
	if err != nil {
		return err
	}

	if _, err := c.api.Export(ctx, table, w); err != nil {
		c.mu.Lock()
		c.fail(ctx, "export csv", err, msgExportFailed)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.setStatus(msgExported, ToneSuccess)
	c.mu.Unlock()
	return nil
}

// ExportXLSX fetches the CSV export and writes it to w as a workbook with a
// single sheet. Every cell is written as text, as the CSV carries it.
func (c *Controller) ExportXLSX(ctx context.Context, w io.Writer) error {
	table, err := c.beginExport(msgExportingXLSX)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := c.api.Export(ctx, table, &buf); err != nil {
		c.mu.Lock()
		c.fail(ctx, "export xlsx", err, msgExportFailed)
		c.mu.Unlock()
		return err
	}

	if err := writeWorkbook(w, &buf); err != nil {
		c.mu.Lock()
		c.fail(ctx, "export xlsx", err, msgExportFailed)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.setStatus(msgExportedXLSX, ToneSuccess)
	c.mu.Unlock()
	return nil
}

func (c *Controller) beginExport(msg string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		return "", ErrNoActiveTable
	}
	c.setStatus(msg, ToneInfo)
	return c.state.ActiveTable, nil
}

// writeWorkbook converts CSV records from r into an xlsx document.
func writeWorkbook(w io.Writer, r io.Reader) error {
	const sheet = "Sheet1"

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	for i := 1; ; i++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv line %d: %w", i, err)
		}
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
		}
		addr, err := excelize.CoordinatesToCellName(1, i)
		if err != nil {
			return err
		}
		if err := sw.SetRow(addr, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ImportCSV uploads a CSV file into the active table and reloads on success.
// The server's summary, when it sends one, becomes the status line.
func (c *Controller) ImportCSV(ctx context.Context, filename string, r io.Reader) error {
	c.mu.Lock()
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		c.mu.Unlock()
		return ErrNoActiveTable
	}
	if r == nil || filename == "" {
		c.setStatus(msgNoImportFile, ToneError)
		c.mu.Unlock()
		return ErrNoImportFile
	}
	table := c.state.ActiveTable
	c.setStatus(msgImporting, ToneInfo)
	c.mu.Unlock()

	summary, err := c.api.Import(ctx, table, filename, r)
	if err != nil {
		c.mu.Lock()
		c.fail(ctx, "import csv", err, msgImportFailed)
		c.mu.Unlock()
		return err
	}

	e := audit.NewEntry(ctx, audit.ActionImport, table)
	e.NewValue = filename
	e.Reason = summary
	c.record(ctx, e)

	msg := msgImported
	if summary != "" {
		msg = msgImported + " " + summary
	}
	return c.reloadAfter(ctx, msg)
}
