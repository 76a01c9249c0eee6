package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

type patchCall struct {
	Table   string
	ID      string
	Changes map[string]any
}

type fetchCall struct {
	Table   string
	Page    int
	PerPage int
}

// fakeAPI is an in-memory data API. Each table stores its full row set and
// FetchRows slices it the way the server paginates.
type fakeAPI struct {
	mu sync.Mutex

	tables []dataapi.TableDescriptor
	rows   map[string][]map[string]any
	pk     string

	// overfill adds extra rows to every page, past perPage.
	overfill int

	fetches []fetchCall
	patches []patchCall
	deletes []string
	uploads []string
	imports []string

	// fetchHook runs before a page is served; it may block.
	fetchHook func(ctx context.Context, call fetchCall)

	listErr   error
	fetchErr  error
	patchErr  error
	deleteErr error
	uploadErr error
	importErr error

	uploadURL  string
	exportBody string
	importMsg  string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pk:   "id",
		rows: make(map[string][]map[string]any),
	}
}

// seed creates n rows in table: id, name, and an empty photo.
func (f *fakeAPI) seed(table string, n int) {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":    json.Number(strconv.Itoa(i + 1)),
			"name":  fmt.Sprintf("item %d", i+1),
			"photo": nil,
		}
	}
	f.mu.Lock()
	f.rows[table] = rows
	f.mu.Unlock()
}

func (f *fakeAPI) fetchCalls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.fetches...)
}

func (f *fakeAPI) ListTables(context.Context) ([]dataapi.TableDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]dataapi.TableDescriptor(nil), f.tables...), nil
}

func (f *fakeAPI) FetchRows(ctx context.Context, table string, page, perPage int) (*dataapi.RowsPage, error) {
	call := fetchCall{Table: table, Page: page, PerPage: perPage}
	f.mu.Lock()
	f.fetches = append(f.fetches, call)
	hook := f.fetchHook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	all := f.rows[table]
	start := (page - 1) * perPage
	if start < 0 {
		start = 0
	}
	end := start + perPage + f.overfill
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	out := make([]map[string]any, 0, end-start)
	for _, r := range all[start:end] {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return &dataapi.RowsPage{
		Rows:       out,
		Columns:    []string{"id", "name", "photo"},
		Total:      len(all),
		PrimaryKey: f.pk,
	}, nil
}

func (f *fakeAPI) PatchRow(_ context.Context, table, id string, changes map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patchCall{Table: table, ID: id, Changes: changes})
	if f.patchErr != nil {
		return f.patchErr
	}
	if r := f.findLocked(table, id); r != nil {
		for k, v := range changes {
			r[k] = v
		}
	}
	return nil
}

func (f *fakeAPI) DeleteRow(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	rows := f.rows[table]
	for i, r := range rows {
		if fmt.Sprint(r[f.pk]) == id {
			f.rows[table] = append(rows[:i:i], rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) Export(_ context.Context, _ string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, f.exportBody)
	return int64(n), err
}

func (f *fakeAPI) Import(_ context.Context, _ string, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, filename)
	if f.importErr != nil {
		return "", f.importErr
	}
	return f.importMsg, nil
}

func (f *fakeAPI) UploadFile(_ context.Context, table, id, column, filename string, r io.Reader) (*dataapi.UploadResult, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, id+"/"+column+"/"+filename)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if row := f.findLocked(table, id); row != nil {
		row[column] = f.uploadURL
	}
	return &dataapi.UploadResult{URL: f.uploadURL, Column: column}, nil
}

func (f *fakeAPI) findLocked(table, id string) map[string]any {
	for _, r := range f.rows[table] {
		if fmt.Sprint(r[f.pk]) == id {
			return r
		}
	}
	return nil
}

var _ API = (*fakeAPI)(nil)
