// Package dataapi is the HTTP client for the data-admin REST API.
//
// The API exposes every configured backend table under /api/data:
//
//	GET    /api/data/tables                 table descriptors
//	GET    /api/data/{table}?page&per_page  one page of rows
//	PATCH  /api/data/{table}/{id}           partial update {changes:{...}}
//	DELETE /api/data/{table}/{id}           delete a row
//	GET    /api/data/{table}/export         CSV download
//	POST   /api/data/{table}/import         CSV bulk load (multipart "file")
//	POST   /api/data/{table}/{id}/image     file for a column (multipart "file", "column")
//
// Non-2xx responses become *APIError carrying the server's message.
package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the origin serving /api/data (e.g. http://backend:5000).
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds every request (default 30s).
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the outgoing rate limiter.
	// A zero RequestsPerSecond disables limiting.
	RequestsPerSecond float64
	Burst             int

	// Uploads bounds concurrent multipart uploads. Nil means unbounded.
	Uploads *UploadLimiter

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client talks to the data API. It is safe for concurrent use.
type Client struct {
	base    string
	token   string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	uploads *UploadLimiter
	tables  singleflight.Group
}

// NewClient validates the options and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("dataapi: base URL is required")
	}
	trimmed := strings.TrimRight(opts.BaseURL, "/")
	base, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("dataapi: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("dataapi: base URL must be http or https, got %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    20,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 20 * time.Second,
			},
		}
	}

	c := &Client{
		base:    trimmed,
		token:   opts.Token,
		http:    hc,
		timeout: timeout,
		uploads: opts.Uploads,
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c, nil
}

// ListTables returns every configured table. Concurrent callers share one
// in-flight request; a caller whose ctx ends stops waiting without failing
// the others.
func (c *Client) ListTables(ctx context.Context) ([]TableDescriptor, error) {
	ch := c.tables.DoChan("tables", func() (interface{}, error) {
		// Detached from the first caller so its cancellation is not shared.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		var tables []TableDescriptor
		if err := c.doJSON(flightCtx, http.MethodGet, c.endpoint(nil, "tables"), nil, "", &tables); err != nil {
			return nil, err
		}
		return tables, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	// Each caller gets its own slice; the shared result must stay untouched.
	shared := res.Val.([]TableDescriptor)
	out := make([]TableDescriptor, len(shared))
	for i, t := range shared {
		out[i] = TableDescriptor{ID: t.ID, Label: t.Label, Display: t.Display.Clone()}
	}
	return out, nil
}

// FetchRows returns one page of rows for table.
func (c *Client) FetchRows(ctx context.Context, table string, page, perPage int) (*RowsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out RowsPage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint(q, table), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchRow sends a partial update. A nil value in changes clears the column.
func (c *Client) PatchRow(ctx context.Context, table, id string, changes map[string]any) error {
	body, err := json.Marshal(map[string]any{"changes": changes})
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	return c.doJSON(ctx, http.MethodPatch, c.endpoint(nil, table, id), bytes.NewReader(body), "application/json", nil)
}

// DeleteRow removes a row by primary key.
func (c *Client) DeleteRow(ctx context.Context, table, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.endpoint(nil, table, id), nil, "", nil)
}

// Export streams the table's CSV export into w.
func (c *Client) Export(ctx context.Context, table string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, c.endpoint(nil, table, "export"), nil, "", "text/csv")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read export: %w", err)
	}
	return n, nil
}

// Import uploads a CSV file and returns the server's status message.
func (c *Client) Import(ctx context.Context, table, filename string, r io.Reader) (string, error) {
	if err := c.acquireUpload(ctx); err != nil {
		return "", err
	}
	defer c.releaseUpload()

	body, contentType, err := multipartBody(filename, r, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint(nil, table, "import"), body, contentType, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", fmt.Errorf("read import response: %w", err)
	}
	return importMessage(raw), nil
}

// UploadFile sends a file for one row/column pair and returns the stored URL.
func (c *Client) UploadFile(ctx context.Context, table, id, column, filename string, r io.Reader) (*UploadResult, error) {
	if err := c.acquireUpload(ctx); err != nil {
		return nil, err
	}
	defer c.releaseUpload()

	body, contentType, err := multipartBody(filename, r, map[string]string{"column": column})
	if err != nil {
		return nil, err
	}

	var out UploadResult
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint(nil, table, id, "image"), body, contentType, &out); err != nil {
		return nil, err
	}
	if out.Column == "" {
		out.Column = column
	}
	return &out, nil
}

func (c *Client) acquireUpload(ctx context.Context) error {
	if c.uploads == nil {
		return nil
	}
	return c.uploads.Acquire(ctx)
}

func (c *Client) releaseUpload() {
	if c.uploads != nil {
		c.uploads.Release()
	}
}

// endpoint builds /api/data/{segments...} with each segment path-escaped.
func (c *Client) endpoint(q url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	target := c.base + "/api/data/" + strings.Join(escaped, "/")
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}

// doJSON performs a request and decodes a JSON response into out. A 204 or a
// nil out skips decoding.
func (c *Client) doJSON(ctx context.Context, method, target string, body io.Reader, contentType string, out any) error {
	resp, err := c.do(ctx, method, target, body, contentType, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, resp.Request.URL.Path, err)
	}
	return nil
}

// do sends the request and converts non-2xx responses into *APIError.
// The caller owns the returned body.
func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("data api request failed",
			"method", method,
			"path", req.URL.Path,
			"error", err,
		)
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}

	slog.Debug("data api request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if !IsSuccessStatus(resp.StatusCode) {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Method:  method,
			Path:    req.URL.Path,
			Status:  resp.StatusCode,
			Message: parseErrorBody(raw),
		}
	}
	return resp, nil
}

// multipartBody encodes r as the "file" part plus any extra form fields.
func multipartBody(filename string, r io.Reader, fields map[string]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("copy file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// importMessage pulls a status line out of the import response, which may be
// JSON ({message}/{status}/{inserted}) or plain text.
func importMessage(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "{") {
		return text
	}
	var payload struct {
		Message  string      `json:"message"`
		Status   string      `json:"status"`
		Inserted json.Number `json:"inserted"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Inserted != "":
		return fmt.Sprintf("%s registro(s) importado(s).", payload.Inserted)
	default:
		return payload.Status
	}
}
