package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
	"github.com/JonMunkholm/dataadmin/internal/logging"
)

// API is the subset of the data API the controller depends on.
// *dataapi.Client satisfies it.
type API interface {
	ListTables(ctx context.Context) ([]dataapi.TableDescriptor, error)
	FetchRows(ctx context.Context, table string, page, perPage int) (*dataapi.RowsPage, error)
	PatchRow(ctx context.Context, table, id string, changes map[string]any) error
	DeleteRow(ctx context.Context, table, id string) error
	Export(ctx context.Context, table string, w io.Writer) (int64, error)
	Import(ctx context.Context, table, filename string, r io.Reader) (string, error)
	UploadFile(ctx context.Context, table, id, column, filename string, r io.Reader) (*dataapi.UploadResult, error)
}

// Defaults for Options.
const (
	DefaultPerPage           = 25
	DefaultLongTextThreshold = 60
)

// DefaultPerPageOptions are the page sizes offered when none are configured.
var DefaultPerPageOptions = []int{10, 25, 50, 100}

// Options configures a Controller.
type Options struct {
	PerPage           int
	PerPageOptions    []int
	LongTextThreshold int

	// Audit receives confirmed mutations. Nil disables auditing.
	Audit audit.Recorder
}

// Controller owns the state of one grid view and performs every operation
// against the data API. All methods are safe for concurrent use; state is
// never mutated while a request is in flight, only once its response is in.
type Controller struct {
	api     API
	auditor audit.Recorder
	maxPer  int

	mu    sync.Mutex
	state State

	// loadSeq fences page loads: only the response of the latest request is
	// applied. cancelLoad aborts the request it superseded.
	loadSeq    uint64
	cancelLoad context.CancelFunc
}

// NewController creates a controller with an empty state.
func NewController(api API, opts Options) *Controller {
	perPageOptions := opts.PerPageOptions
	if len(perPageOptions) == 0 {
		perPageOptions = DefaultPerPageOptions
	}
	maxPer := 0
	for _, n := range perPageOptions {
		if n > maxPer {
			maxPer = n
		}
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > maxPer {
		perPage = maxPer
	}
	threshold := opts.LongTextThreshold
	if threshold <= 0 {
		threshold = DefaultLongTextThreshold
	}

	return &Controller{
		api:     api,
		auditor: opts.Audit,
		maxPer:  maxPer,
		state: State{
			Page:              1,
			PerPage:           perPage,
			PerPageOptions:    append([]int(nil), perPageOptions...),
			LongTextThreshold: threshold,
			Status:            Status{Tone: ToneMuted},
		},
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Loaded reports whether the table list has been fetched at least once.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Tables != nil
}

// LoadTables fetches the table list, keeps the active table when it still
// exists (otherwise selects the first one) and loads its rows.
func (c *Controller) LoadTables(ctx context.Context) error {
	c.mu.Lock()
	c.setStatus(msgLoadingTables, ToneInfo)
	c.mu.Unlock()

	tables, err := c.api.ListTables(ctx)

	c.mu.Lock()
	if err != nil {
		c.fail(ctx, "load tables", err, msgTablesFailed)
		c.mu.Unlock()
		return err
	}
	if tables == nil {
		tables = []dataapi.TableDescriptor{}
	}
	c.state.Tables = tables

	if len(tables) == 0 {
		c.closeEditorLocked()
		c.resetTableLocked("")
		c.setStatus(msgNoTables, ToneError)
		c.mu.Unlock()
		logging.FromContext(ctx).Warn("data api returned no tables")
		return ErrNoTables
	}

	desc, ok := findTable(tables, c.state.ActiveTable)
	if !ok {
		desc = tables[0]
		c.closeEditorLocked()
		c.resetTableLocked(desc.ID)
	}
	c.state.Display = desc.Display.Clone()
	c.mu.Unlock()

	return c.LoadRows(ctx)
}

// SelectTable switches the active table. Any open editor and lightbox are
// closed first, the page resets to 1 and rows are reloaded.
func (c *Controller) SelectTable(ctx context.Context, id string) error {
	c.mu.Lock()
	desc, ok := findTable(c.state.Tables, id)
	if !ok {
		c.setStatus(msgUnknownTable, ToneError)
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownTable, id)
	}
	c.closeEditorLocked()
	c.resetTableLocked(desc.ID)
	c.state.Display = desc.Display.Clone()
	c.mu.Unlock()

	return c.LoadRows(ctx)
}

// Reload goes back to the first page and reloads it.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	perPage := c.state.PerPage
	c.mu.Unlock()
	return c.loadPage(ctx, 1, perPage)
}

// LoadRows fetches the current page of the active table and replaces rows,
// columns, total, primary key and display config in one step.
//
// A page beyond the bound recomputed from the response is clamped and
// requested again, once. Overlapping calls are fenced: starting a load
// cancels the previous one, and a response that is no longer the latest is
// dropped with ErrStaleResponse. On failure only the status line changes.
func (c *Controller) LoadRows(ctx context.Context) error {
	c.mu.Lock()
	page, perPage := c.state.Page, c.state.PerPage
	c.mu.Unlock()
	return c.loadPage(ctx, page, perPage)
}

// loadPage requests page/perPage. Both are committed to state only together
// with the rows they produced.
func (c *Controller) loadPage(ctx context.Context, page, perPage int) error {
	c.mu.Lock()
	if c.state.ActiveTable == "" {
		c.setStatus(msgSelectTable, ToneMuted)
		c.mu.Unlock()
		return ErrNoActiveTable
	}
	table := c.state.ActiveTable
	if page < 1 {
		page = 1
	}

	c.loadSeq++
	seq := c.loadSeq
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.setStatus(msgLoadingRows, ToneInfo)
	c.mu.Unlock()
	defer cancel()

	result, err := c.api.FetchRows(loadCtx, table, page, perPage)
	if err == nil {
		if pages := totalPages(result.Total, perPage); page > pages {
			logging.FromContext(ctx).Debug("page out of range, clamping",
				"table", table, "page", page, "pages", pages)
			page = pages
			result, err = c.api.FetchRows(loadCtx, table, page, perPage)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.loadSeq {
		logging.FromContext(ctx).Debug("discarding stale page response", "table", table, "page", page)
		return ErrStaleResponse
	}
	c.cancelLoad = nil

	if err != nil {
		c.fail(ctx, "load rows", err, msgRowsFailed)
		return err
	}

	c.applyPageLocked(table, page, perPage, result)
	c.setStatus(fmt.Sprintf(msgShowingRowsTmpl, len(c.state.Rows), c.state.Total), ToneSuccess)
	return nil
}

// applyPageLocked installs a page response. It enforces len(rows) <= perPage
// and keeps page inside [1, TotalPages()].
func (c *Controller) applyPageLocked(table string, page, perPage int, result *dataapi.RowsPage) {
	display := result.Display
	if isZeroDisplay(display) {
		if desc, ok := findTable(c.state.Tables, table); ok {
			display = desc.Display
		}
	}

	raw := result.Rows
	if len(raw) > perPage {
		raw = raw[:perPage]
	}
	rows := make([]Row, len(raw))
	for i, r := range raw {
		rows[i] = decodeRow(r, display)
	}

	columns := result.Columns
	if len(columns) == 0 && len(raw) > 0 {
		columns = columnsOf(raw[0])
	}

	c.state.Rows = rows
	c.state.Columns = append([]string(nil), columns...)
	c.state.Total = result.Total
	if c.state.Total < 0 {
		c.state.Total = 0
	}
	c.state.PrimaryKey = result.PrimaryKey
	c.state.Display = display.Clone()
	c.state.PerPage = perPage
	c.state.Page = clampPage(page, totalPages(c.state.Total, perPage))

	// A lightbox for a row that left the page has nothing to show.
	if lb := c.state.Lightbox; lb.Open() && lb.Phase != LightboxUploading {
		if _, ok := c.findRowLocked(lb.RowID); !ok {
			c.closeLightboxLocked()
		}
	}
}

// PrevPage loads the previous page when there is one.
func (c *Controller) PrevPage(ctx context.Context) error {
	c.mu.Lock()
	page, perPage := c.state.Page, c.state.PerPage
	c.mu.Unlock()
	if page <= 1 {
		return nil
	}
	return c.loadPage(ctx, page-1, perPage)
}

// NextPage loads the next page when there is one.
func (c *Controller) NextPage(ctx context.Context) error {
	c.mu.Lock()
	page, perPage, total := c.state.Page, c.state.PerPage, c.state.Total
	c.mu.Unlock()
	if page*perPage >= total {
		return nil
	}
	return c.loadPage(ctx, page+1, perPage)
}

// JumpToPage loads page n, clamped to [1, TotalPages()].
func (c *Controller) JumpToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	page, perPage := clampPage(n, c.state.TotalPages()), c.state.PerPage
	c.mu.Unlock()
	return c.loadPage(ctx, page, perPage)
}

// ChangePerPage switches the page size, bounded by the largest offered
// option, and goes back to page 1.
func (c *Controller) ChangePerPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	if n > c.maxPer {
		n = c.maxPer
	}
	return c.loadPage(ctx, 1, n)
}

// resetTableLocked makes id the active table and drops everything that
// belonged to the previous one.
func (c *Controller) resetTableLocked(id string) {
	c.invalidateLoadsLocked()
	c.state.ActiveTable = id
	c.state.Page = 1
	c.state.Rows = nil
	c.state.Columns = nil
	c.state.Total = 0
	c.state.PrimaryKey = ""
	c.state.Display = dataapi.DisplayConfig{}
	c.closeLightboxLocked()
}

// invalidateLoadsLocked makes any in-flight page load stale.
func (c *Controller) invalidateLoadsLocked() {
	c.loadSeq++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

func (c *Controller) findRowLocked(id string) (Row, bool) {
	if c.state.EditingRow != nil && c.state.RowID(c.state.EditingRow) == id {
		return c.state.EditingRow, true
	}
	for _, row := range c.state.Rows {
		if c.state.RowID(row) == id {
			return row, true
		}
	}
	return nil, false
}

func (c *Controller) setStatus(msg string, tone Tone) {
	c.state.Status = Status{Message: msg, Tone: tone}
}

// fail logs the cause and sets the error status line.
func (c *Controller) fail(ctx context.Context, op string, err error, fallback string) {
	logging.FromContext(ctx).Warn("grid operation failed",
		"op", op,
		"table", c.state.ActiveTable,
		"error", err,
	)
	c.setStatus(statusText(err, fallback), ToneError)
}

// record sends an entry to the auditor; failures are logged only.
func (c *Controller) record(ctx context.Context, e audit.Entry) {
	if c.auditor == nil {
		return
	}
	if err := c.auditor.Record(ctx, e); err != nil {
		logging.FromContext(ctx).Error("audit record failed",
			"action", string(e.Action),
			"table", e.TableKey,
			"error", err,
		)
	}
}

// reloadAfter reloads rows after a confirmed mutation and then shows the
// mutation's success message. A superseded reload is not an error here, but
// the status line then belongs to the load that replaced it.
func (c *Controller) reloadAfter(ctx context.Context, success string) error {
	err := c.LoadRows(ctx)
	if errors.Is(err, ErrStaleResponse) {
		return nil
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.setStatus(success, ToneSuccess)
	c.mu.Unlock()
	return nil
}

func isZeroDisplay(d dataapi.DisplayConfig) bool {
	return len(d.Hidden) == 0 && len(d.Labels) == 0 && len(d.ThumbnailColumns) == 0 &&
		len(d.UploadFields) == 0 && len(d.ImageFields) == 0
}

func columnsOf(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

var _ API = (*dataapi.Client)(nil)
