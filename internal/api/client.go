package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
	"github.com/oakwood-commons/fleetgrid/pkg/logger"
	"github.com/oakwood-commons/fleetgrid/pkg/session"
)

// DefaultTimeout bounds every request unless WithHTTPClient overrides it.
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries a per-request id for backend log correlation.
const RequestIDHeader = "X-Request-ID"

// Client talks to one backend base URL on behalf of one session.
type Client struct {
	base           *url.URL
	http           *http.Client
	session        *session.Store
	onUnauthorized func()
	now            func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithOnUnauthorized registers the hook run after a 401 clears the session.
func WithOnUnauthorized(fn func()) ClientOption {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithClock overrides time.Now for export file names.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient returns a client for baseURL. store may be nil for anonymous use.
func NewClient(baseURL string, store *session.Store, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("api base URL is empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base URL %q must be http or https", baseURL)
	}
	if store == nil {
		store = session.NewStore(session.Credentials{})
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: DefaultTimeout},
		session: store,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Store { return c.session }

// BaseURL is the normalized backend URL.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(resource string, elem ...string) string {
	u := *c.base
	u.Path = path.Join(append([]string{"/", c.base.Path, resource}, elem...)...)
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	id := uuid.NewString()
	req.Header.Set(RequestIDHeader, id)
	req.Header.Set("Accept", "application/json")
	if h := c.session.Credentials().Header(); h != "" {
		req.Header.Set("Authorization", h)
	}
	return req, id, nil
}

// do sends req and returns the response when the status is 2xx. Failures are
// normalized into *Error; a 401 also clears the session.
func (c *Client) do(req *http.Request, id string) (*http.Response, error) {
	lgr := logger.WithValues(logger.FromContext(req.Context()), logger.RequestIDKey, id, "method", req.Method, "url", req.URL.String())
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		lgr.Error(err, "request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	lgr.V(1).Info("response", "status", resp.StatusCode, "duration", time.Since(start).String())
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := decodeError(resp)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.session.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500:
		lgr.Error(apiErr, "backend error", "status", resp.StatusCode)
	}
	return nil, apiErr
}

func decodeError(resp *http.Response) *Error {
	e := &Error{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var env Envelope[json.RawMessage]
	if json.Unmarshal(body, &env) == nil {
		e.Message = env.Message
		e.Errors = parseErrors(env.Errors)
		if env.Errors == nil && len(env.Data) > 0 {
			var nested struct {
				Message string          `json:"message"`
				Errors  json.RawMessage `json:"errors"`
			}
			if json.Unmarshal(env.Data, &nested) == nil {
				if e.Message == "" {
					e.Message = nested.Message
				}
				e.Errors = parseErrors(nested.Errors)
			}
		}
		return e
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		e.Message = s
	}
	return e
}

// getJSON fetches target and returns the envelope data.
func getJSON[T any](ctx context.Context, c *Client, target string) (T, error) {
	var zero T
	req, id, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return zero, err
	}
	resp, err := c.do(req, id)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	env, err := decodeEnvelope[T](resp.Body)
	if err != nil {
		return zero, err
	}
	if !env.Success {
		return zero, &Error{StatusCode: env.StatusCode, Message: env.Message, Errors: parseErrors(env.Errors)}
	}
	return env.Data, nil
}

func decodeEnvelope[T any](r io.Reader) (*Envelope[T], error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var env Envelope[T]
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

// List fetches one page of resource.
func (c *Client) List(ctx context.Context, resource string, q ListQuery) (*ListResult, error) {
	v, err := q.Values()
	if err != nil {
		return nil, err
	}
	res, err := getJSON[ListResult](ctx, c, c.endpoint(resource)+"?"+v.Encode())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	return &res, nil
}

// FilterOptions fetches distinct values of column narrowed by search.
func (c *Client) FilterOptions(ctx context.Context, resource, column, search string, limit int) (*OptionsResult, error) {
	v := url.Values{}
	v.Set("column", column)
	if search != "" {
		v.Set("search", search)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	res, err := getJSON[OptionsResult](ctx, c, c.endpoint(resource, "filter-options")+"?"+v.Encode())
	if err != nil {
		return nil, fmt.Errorf("filter options %s.%s: %w", resource, column, err)
	}
	return &res, nil
}

// OptionLoader adapts FilterOptions to grid.OptionLoader.
func (c *Client) OptionLoader(resource string, limit int) grid.OptionLoader {
	return func(ctx context.Context, field, search string) ([]grid.FilterOption, error) {
		res, err := c.FilterOptions(ctx, resource, field, search, limit)
		if err != nil {
			return nil, err
		}
		return res.Options, nil
	}
}

// Download is an exported file body.
type Download struct {
	Data        []byte
	ContentType string
	// Filename is the server-suggested name, if any.
	Filename string
}

// Export requests resource in format. params carry the active query.
func (c *Client) Export(ctx context.Context, resource string, format grid.ExportFormat, params url.Values) (*Download, error) {
	v := url.Values{}
	for k, vals := range params {
		v[k] = append([]string(nil), vals...)
	}
	v.Set("format", string(format))
	req, id, err := c.newRequest(ctx, http.MethodGet, c.endpoint(resource, "export")+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	resp, err := c.do(req, id)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", resource, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("export %s: read body: %w", resource, err)
	}
	d := &Download{Data: data, ContentType: resp.Header.Get("Content-Type")}
	if _, p, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		d.Filename = filepath.Base(p["filename"])
	}
	return d, nil
}

// ExportFilename is base plus a timestamp and the format extension.
func ExportFilename(base string, format grid.ExportFormat, at time.Time) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s_%s.%s", base, at.Format("20060102_150405"), format)
}

// SaveExport downloads an export into dir and returns the written path.
func (c *Client) SaveExport(ctx context.Context, resource string, format grid.ExportFormat, params url.Values, dir, base string) (string, error) {
	d, err := c.Export(ctx, resource, format, params)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	p := filepath.Join(dir, ExportFilename(base, format, c.now()))
	if err := os.WriteFile(p, d.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	logger.FromContext(ctx).V(1).Info("export saved", logger.ResourceKey, resource, "path", p, "bytes", len(d.Data))
	return p, nil
}

// Import uploads r as the multipart "file" field.
func (c *Client) Import(ctx context.Context, resource, filename string, r io.Reader) (*ImportResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", resource, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("import %s: read file: %w", resource, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("import %s: %w", resource, err)
	}

	req, id, err := c.newRequest(ctx, http.MethodPost, c.endpoint(resource, "import"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req, id)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", resource, err)
	}
	defer resp.Body.Close()

	var res ImportResult
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("import %s: decode response: %w", resource, err)
	}
	return &res, nil
}

// ImportFile opens path and uploads it.
func (c *Client) ImportFile(ctx context.Context, resource, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return c.Import(ctx, resource, path, f)
}
