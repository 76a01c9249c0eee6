package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/config"
	"github.com/JonMunkholm/dataadmin/internal/core"
)

func rowIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find("#dataTableBody tr[data-id]").Each(func(_ int, s *goquery.Selection) {
		ids = append(ids, s.AttrOr("data-id", ""))
	})
	return ids
}

func status(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("#dataStatus").Text())
}

func multipartRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, target, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndex_FirstVisitLoadsFirstTable(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "dataadmin_session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "session cookie set")
	assert.True(t, sessionCookie.HttpOnly)

	doc := b.parse(resp)
	assert.Equal(t, "Cojines", doc.Find("#dataTableTitle").Text())
	assert.Equal(t, "Cojines · 2 registro(s)", doc.Find("#dataTableMeta").Text())
	assert.Equal(t, []string{"1", "2"}, rowIDs(doc))
	assert.Equal(t, "Acciones", doc.Find("#dataTableHead th").First().Text())
	assert.Equal(t, "Mostrando 2 registro(s) de 2.", status(doc))
	assert.Equal(t, "cojines", doc.Find("#dataTableSelect option[selected]").AttrOr("value", ""))
	assert.Equal(t, "1 / 1", doc.Find("#dataPageIndicator").Text())

	// Row 1 has no photo yet: the cell opens the lightbox to upload one.
	empty := doc.Find(`tr[data-id="1"] a.data-admin__upload-link`)
	assert.Equal(t, "Sin archivo", empty.Text())
	assert.Equal(t, "/grid/rows/1/files/photo", empty.AttrOr("href", ""))
	assert.Equal(t, "https://cdn.example.com/2.jpg", doc.Find(`tr[data-id="2"] img`).AttrOr("src", ""))
}

func TestSessions_AreIsolated(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.browser(t), env.browser(t)

	alice.page()
	bob.page()

	resp := alice.post("/grid/table", url.Values{"table": {"fundas"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	assert.Equal(t, "Fundas", alice.page().Find("#dataTableTitle").Text())
	assert.Equal(t, "Cojines", bob.page().Find("#dataTableTitle").Text())
	assert.Equal(t, 2, env.server.sessions.len())
}

func TestHTMX_ReturnsGridFragment(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	b.htmx = true
	resp := b.post("/grid/reload", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), `<section id="grid"`), "fragment starts with the grid section")
	assert.NotContains(t, string(body), "<html")
}

func TestReload_PicksUpUpstreamChanges(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	assert.Equal(t, []string{"1", "2"}, rowIDs(b.page()))

	env.upstream.mu.Lock()
	env.upstream.rows["cojines"] = append(env.upstream.rows["cojines"],
		map[string]any{"id": 3, "name": "Cojín nuevo", "photo": nil})
	env.upstream.mu.Unlock()

	assert.Equal(t, []string{"1", "2"}, rowIDs(b.page()), "plain GET renders cached rows")

	resp := b.post("/grid/reload", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"1", "2", "3"}, rowIDs(b.page()))
}

func TestSelectTable_Unknown(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	b.post("/grid/table", url.Values{"table": {"nope"}})
	doc := b.page()
	assert.Equal(t, "La tabla seleccionada no existe.", status(doc))
	assert.Equal(t, "Cojines", doc.Find("#dataTableTitle").Text())
}

func TestPage_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.post("/grid/page", url.Values{"action": {"jump"}, "page": {"abc"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = b.post("/grid/page", url.Values{"action": {"sideways"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = b.post("/grid/per-page", url.Values{"per_page": {"0"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPerPage_ClampsToLargestOption(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.post("/grid/per-page", url.Values{"per_page": {"500"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	doc := b.page()
	assert.Equal(t, "100", doc.Find(`select[name="per_page"] option[selected]`).AttrOr("value", ""))
}

func TestEditor_SubmitSendsOnlyChangedColumns(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.get("/grid/rows/1/edit")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	doc := b.page()
	require.Equal(t, 1, doc.Find("#dataEditor").Length())
	assert.Equal(t, "Editar registro (id: 1)", doc.Find("#dataEditorTitle").Text())
	assert.Equal(t, "Cojín lino", doc.Find(`#dataEditorForm input[name="name"]`).AttrOr("value", ""))
	assert.Equal(t, "hidden", doc.Find(`#dataEditorForm input[name="photo"]`).AttrOr("type", ""))
	assert.Equal(t, 1, doc.Find("#dataEditorImageBtn").Length())

	resp = b.post("/grid/editor", url.Values{
		"_row":  {"1"},
		"id":    {"1"},
		"name":  {"Cojín lino XL"},
		"photo": {""},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	patches, _, _, _ := env.upstream.snapshot()
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]any{"name": "Cojín lino XL"}, patches[0])

	doc = b.page()
	assert.Equal(t, 0, doc.Find("#dataEditor").Length(), "editor closes on success")
	assert.Equal(t, "Registro actualizado correctamente.", status(doc))
	assert.Contains(t, doc.Find(`tr[data-id="1"]`).Text(), "Cojín lino XL")

	entries := env.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCellEdit, entries[0].Action)
	assert.Equal(t, "name", entries[0].ColumnName)
	assert.NotEmpty(t, entries[0].SessionID)
}

func TestEditor_UnchangedFormSendsNothing(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()
	b.get("/grid/rows/2/edit")

	b.post("/grid/editor", url.Values{
		"_row":  {"2"},
		"id":    {"2"},
		"name":  {"Cojín terciopelo"},
		"photo": {"https://cdn.example.com/2.jpg"},
	})

	patches, _, _, _ := env.upstream.snapshot()
	assert.Empty(t, patches)
	doc := b.page()
	assert.Equal(t, "No hay cambios para guardar.", status(doc))
	assert.Equal(t, 1, doc.Find("#dataEditor").Length(), "editor stays open")
}

func TestEditor_StaleFormIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()
	b.get("/grid/rows/2/edit")

	b.post("/grid/editor", url.Values{"_row": {"1"}, "name": {"otro"}})

	patches, _, _, _ := env.upstream.snapshot()
	assert.Empty(t, patches)
}

func TestEditor_Close(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()
	b.get("/grid/rows/1/edit")

	b.post("/grid/editor/close", nil)
	assert.Equal(t, 0, b.page().Find("#dataEditor").Length())
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	doc := b.parse(b.get("/grid/rows/2/delete"))
	assert.Equal(t, core.DeletePrompt, strings.TrimSpace(doc.Find("#dataDeleteConfirm p").Text()))
	assert.Equal(t, "/grid/rows/2/delete", doc.Find("#dataDeleteConfirm form").AttrOr("action", ""))

	b.post("/grid/rows/2/delete", url.Values{"confirm": {"no"}})
	_, deletes, _, _ := env.upstream.snapshot()
	assert.Empty(t, deletes)

	b.post("/grid/rows/2/delete", url.Values{"confirm": {"yes"}})
	_, deletes, _, _ = env.upstream.snapshot()
	assert.Equal(t, []string{"cojines/2"}, deletes)

	doc = b.page()
	assert.Equal(t, []string{"1"}, rowIDs(doc))
	assert.Equal(t, "Registro eliminado.", status(doc))
}

func TestPathParam_DecodesOnce(t *testing.T) {
	for _, id := range []string{"7", "a%41", "50%", "a/b", "a%41/b", "ñandú 1"} {
		t.Run(id, func(t *testing.T) {
			var got string
			r := chi.NewRouter()
			r.Get("/rows/{id}/edit", func(_ http.ResponseWriter, r *http.Request) {
				got = pathParam(r, "id")
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rows/"+url.PathEscape(id)+"/edit", nil))
			assert.Equal(t, id, got)
		})
	}
}

func TestDelete_EscapedRowIDs(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()
	b.post("/grid/table", url.Values{"table": {"fundas"}})

	doc := b.page()
	require.Equal(t, []string{"10", "a%41", "a/b"}, rowIDs(doc))

	for _, id := range []string{"a%41", "a/b"} {
		href := doc.Find(`tr[data-id="` + id + `"] a[data-action="delete"]`).AttrOr("href", "")
		require.Equal(t, "/grid/rows/"+url.PathEscape(id)+"/delete", href)

		resp := b.post(href, url.Values{"confirm": {"yes"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}

	_, deletes, _, _ := env.upstream.snapshot()
	assert.Equal(t, []string{"fundas/a%41", "fundas/a/b"}, deletes)
	assert.Equal(t, []string{"10"}, rowIDs(b.page()))
}

func TestLightbox_OpenUploadClose(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	b.get("/grid/rows/1/files/photo")
	doc := b.page()
	lb := doc.Find("#dataLightbox")
	require.Equal(t, 1, lb.Length())
	assert.Equal(t, 1, doc.Find("#dataLightboxEmpty").Length())
	assert.Equal(t, "image/*", lb.Find(`input[type="file"]`).AttrOr("accept", ""))

	req := multipartRequest(t, b.base+"/grid/rows/1/files/photo", "nuevo.jpg", []byte("jpeg"))
	resp := b.do(req)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, _, uploads, _ := env.upstream.snapshot()
	assert.Equal(t, []string{"cojines/1/photo"}, uploads)

	doc = b.page()
	assert.Equal(t, "https://cdn.example.com/nuevo.jpg", doc.Find("#dataLightboxImage").AttrOr("src", ""))
	assert.Equal(t, "https://cdn.example.com/nuevo.jpg", doc.Find(`tr[data-id="1"] img`).AttrOr("src", ""))
	assert.Equal(t, "Imagen actualizada.", status(doc))

	b.post("/grid/lightbox/close", nil)
	assert.Equal(t, 0, b.page().Find("#dataLightbox").Length())
}

func TestLightbox_NonUploadColumn(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	b.get("/grid/rows/1/files/name")
	doc := b.page()
	assert.Equal(t, 0, doc.Find("#dataLightbox").Length())
	assert.Equal(t, "Esta columna no admite archivos.", status(doc))
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)

	// In-process, so the server can stop reading early without the client
	// seeing a reset connection.
	req := multipartRequest(t, "/grid/rows/1/files/photo", "big.jpg", bytes.Repeat([]byte("x"), 3<<20))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "FILE001", body.Code)

	_, _, uploads, _ := env.upstream.snapshot()
	assert.Empty(t, uploads)
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.post("/grid/import", url.Values{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.do(multipartRequest(t, b.base+"/grid/import", "nuevos.csv", []byte("name\nA\nB\nC\n")))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, _, _, imports := env.upstream.snapshot()
	assert.Equal(t, []string{"nuevos.csv"}, imports)
	assert.Equal(t, "Importación finalizada. 3 registro(s) importado(s).", status(b.page()))
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)
	b.page()

	resp := b.get("/grid/export.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="cojines.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Cojín lino\n", string(body))

	resp = b.get("/grid/export.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="cojines.xlsx"`, resp.Header.Get("Content-Disposition"))
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx is a zip archive")
}

func TestExport_WithoutTable(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.get("/grid/export.csv")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, b.parse(resp).Find(".data-admin__alert").Length())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp := b.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Empty(t, resp.Cookies(), "health checks do not create sessions")
}

func TestAPIKey(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1"}
	})
	b := env.browser(t)

	assert.Equal(t, http.StatusOK, b.get("/healthz").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, b.get("/").StatusCode)

	req, err := http.NewRequest(http.MethodGet, b.base+"/", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, b.do(req).StatusCode)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
	})
	b := env.browser(t)

	assert.Equal(t, http.StatusOK, b.get("/healthz").StatusCode)
	assert.Equal(t, http.StatusOK, b.get("/healthz").StatusCode)

	resp := b.get("/healthz")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Security.EnableCSP = true })
	resp := env.browser(t).get("/healthz")

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")
}

func TestStaticStylesheet(t *testing.T) {
	env := newTestEnv(t)
	resp := env.browser(t).get("/static/data_admin.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}
