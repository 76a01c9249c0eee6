package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/config"
	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// upstream is a fake data API with two tables: "cojines" (with an image
// upload field) and "fundas".
type upstream struct {
	mu sync.Mutex

	rows    map[string][]map[string]any
	patches []map[string]any
	deletes []string
	uploads []string
	imports []string
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{rows: map[string][]map[string]any{
		"cojines": {
			{"id": 1, "name": "Cojín lino", "photo": nil},
			{"id": 2, "name": "Cojín terciopelo", "photo": "https://cdn.example.com/2.jpg"},
		},
		"fundas": {
			{"id": 10, "name": "Funda algodón"},
			{"id": "a%41", "name": "Funda con clave escapada"},
			{"id": "a/b", "name": "Funda con barra"},
		},
	}}

	r := chi.NewRouter()
	r.Get("/api/data/tables", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[
			{"id":"cojines","label":"Cojines","display":{
				"labels":{"name":"Nombre"},
				"thumbnail_columns":["photo"],
				"upload_fields":{"photo":{"type":"image","accept":"image/*"}},
				"image_fields":["photo"]
			}},
			{"id":"fundas","label":"Fundas","display":{}}
		]`)
	})
	r.Get("/api/data/{table}", u.list)
	r.Get("/api/data/{table}/export", u.export)
	r.Post("/api/data/{table}/import", u.importCSV)
	r.Patch("/api/data/{table}/{id}", u.patch)
	r.Delete("/api/data/{table}/{id}", u.delete)
	r.Post("/api/data/{table}/{id}/image", u.upload)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *upstream) list(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	rows, ok := u.rows[chi.URLParam(r, "table")]
	if !ok {
		http.Error(w, `{"error":"tabla desconocida"}`, http.StatusNotFound)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	start := min((page-1)*perPage, len(rows))
	end := min(start+perPage, len(rows))

	json.NewEncoder(w).Encode(map[string]any{
		"rows":        rows[start:end],
		"columns":     []string{"id", "name", "photo"},
		"total":       len(rows),
		"primary_key": "id",
	})
}

func (u *upstream) find(table, id string) (map[string]any, int) {
	for i, row := range u.rows[table] {
		if fmt.Sprint(row["id"]) == id {
			return row, i
		}
	}
	return nil, -1
}

func (u *upstream) patch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Changes map[string]any `json:"changes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	row, _ := u.find(chi.URLParam(r, "table"), pathParam(r, "id"))
	if row == nil {
		http.Error(w, `{"error":"registro no encontrado"}`, http.StatusNotFound)
		return
	}
	for k, v := range body.Changes {
		row[k] = v
	}
	u.patches = append(u.patches, body.Changes)
	w.WriteHeader(http.StatusNoContent)
}

func (u *upstream) delete(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	table, id := chi.URLParam(r, "table"), pathParam(r, "id")
	_, i := u.find(table, id)
	if i < 0 {
		http.Error(w, `{"error":"registro no encontrado"}`, http.StatusNotFound)
		return
	}
	u.rows[table] = append(u.rows[table][:i], u.rows[table][i+1:]...)
	u.deletes = append(u.deletes, table+"/"+id)
	w.WriteHeader(http.StatusNoContent)
}

func (u *upstream) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	file.Close()

	u.mu.Lock()
	defer u.mu.Unlock()
	table, id, column := chi.URLParam(r, "table"), pathParam(r, "id"), r.FormValue("column")
	row, _ := u.find(table, id)
	if row == nil {
		http.Error(w, `{"error":"registro no encontrado"}`, http.StatusNotFound)
		return
	}
	stored := "https://cdn.example.com/" + header.Filename
	row[column] = stored
	u.uploads = append(u.uploads, table+"/"+id+"/"+column)
	json.NewEncoder(w).Encode(map[string]string{"url": stored, "column": column})
}

func (u *upstream) export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	io.WriteString(w, "id,name\n1,Cojín lino\n")
}

func (u *upstream) importCSV(w http.ResponseWriter, r *http.Request) {
	_, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u.mu.Lock()
	u.imports = append(u.imports, header.Filename)
	u.mu.Unlock()
	io.WriteString(w, `{"inserted": 3}`)
}

func (u *upstream) snapshot() (patches []map[string]any, deletes, uploads, imports []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append(patches, u.patches...), append(deletes, u.deletes...),
		append(uploads, u.uploads...), append(imports, u.imports...)
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: 10 * time.Second},
		API:    config.APIConfig{URL: apiURL, Timeout: 5 * time.Second},
		Grid:   config.GridConfig{PerPage: 25, PerPageOptions: []int{10, 25, 50, 100}, LongTextThreshold: 60},
		Session: config.SessionConfig{
			CookieName:    "dataadmin_session",
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   10,
		},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: 10 * time.Second},
		Rate:   config.RateLimitConfig{Enabled: false, RequestsPerMinute: 100, UploadLimit: 10},
	}
}

// testEnv is a Server wired to a fake upstream, served over httptest.
type testEnv struct {
	upstream *upstream
	server   *Server
	http     *httptest.Server
	audit    *audit.MemoryRecorder
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	up, upSrv := newUpstream(t)

	cfg := testConfig(upSrv.URL)
	for _, m := range mutate {
		m(cfg)
	}

	client, err := dataapi.NewClient(dataapi.Options{
		BaseURL: cfg.API.URL,
		Timeout: cfg.API.Timeout,
		Uploads: dataapi.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
	})
	require.NoError(t, err)

	rec := &audit.MemoryRecorder{}
	srv := NewServer(cfg, func() *core.Controller {
		return core.NewController(client, core.Options{
			PerPage:           cfg.Grid.PerPage,
			PerPageOptions:    cfg.Grid.PerPageOptions,
			LongTextThreshold: cfg.Grid.LongTextThreshold,
			Audit:             rec,
		})
	})

	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)
	return &testEnv{upstream: up, server: srv, http: hs, audit: rec}
}

// browser is a cookie-keeping client that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	htmx   bool
}

func (e *testEnv) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: e.http.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	if b.htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// page loads "/" and parses it.
func (b *browser) page() *goquery.Document {
	b.t.Helper()
	return b.parse(b.get("/"))
}

func (b *browser) parse(resp *http.Response) *goquery.Document {
	b.t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(b.t, err)
	return doc
}
