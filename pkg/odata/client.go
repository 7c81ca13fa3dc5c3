package odata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Buffalo-Machine-Learning/Postgres-DW-Template/pkg/core"
)

// Client defaults.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxConcurrency = 4

	requestIDHeader = "X-Request-ID"
	maxErrorBody    = 512
)

// ErrBaseURL is returned for a missing or non-http(s) service URL.
var ErrBaseURL = errors.New("odata base URL must be an absolute http or https URL")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("odata request %s failed: %s: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("odata request %s failed: %s", e.URL, e.Status)
}

// Client reads entity sets from one OData service. It is safe for
// concurrent use.
type Client struct {
	baseURL        string
	http           *http.Client
	logger         *slog.Logger
	maxConcurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client from cfg. Zero timeout and concurrency take
// the package defaults.
func NewClient(cfg core.ODataConfig, opts ...Option) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = DefaultMaxConcurrency
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: timeout},
		logger:         slog.New(slog.DiscardHandler),
		maxConcurrency: limit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Query translates a restricted SELECT and fetches the matching rows.
func (c *Client) Query(ctx context.Context, query string) (*core.Result, error) {
	req, err := Translate(query)
	if err != nil {
		return nil, fmt.Errorf("translate query: %w", err)
	}
	return c.Fetch(ctx, req)
}

// QueryAll runs several queries concurrently, at most MaxConcurrency at a
// time. Results are in input order; the first failure cancels the rest.
func (c *Client) QueryAll(ctx context.Context, queries []string) ([]*core.Result, error) {
	results := make([]*core.Result, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			res, err := c.Query(ctx, q)
			if err != nil {
				return fmt.Errorf("query %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fetch issues the GET for a translated request and normalizes the
// response rows.
func (c *Client) Fetch(ctx context.Context, r *Request) (*core.Result, error) {
	target := r.URL(c.baseURL)
	requestID := uuid.NewString()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	c.logger.Debug("odata request", slog.String("url", target), slog.String("request_id", requestID))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("odata request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("odata request failed",
			slog.String("url", target),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        target,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	result, err := decodeRows(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", target, err)
	}

	c.logger.Debug("odata response",
		slog.String("request_id", requestID),
		slog.Int("rows", result.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// decodeRows reads {"value": [{...}, ...]} into a Result. Columns appear in
// first-seen key order, nested objects are flattened with "." and keys
// missing from a row are nil. A missing "value" member is an empty result.
func decodeRows(r io.Reader) (*core.Result, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	rb := &rowBuilder{index: map[string]int{}}
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		if key != "value" {
			if _, err := readValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		for dec.More() {
			v, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			obj, ok := v.(object)
			if !ok {
				return nil, fmt.Errorf("value: expected an object per row, got %T", plain(v))
			}
			rb.add(obj)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return rb.result(), nil
}

// member is one key/value pair of a JSON object, kept in document order.
type member struct {
	key string
	val any
}

type object []member

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

// readValue reads one JSON value. Objects come back as object to keep
// their key order.
func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var obj object
			for dec.More() {
				key, err := objectKey(dec)
				if err != nil {
					return nil, err
				}
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, member{key: key, val: v})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if err := expectDelim(dec, ']'); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
		return t.String(), nil
	default:
		return t, nil
	}
}

// plain converts ordered objects back to maps for values kept as-is
// (arrays and their contents).
func plain(v any) any {
	switch t := v.(type) {
	case object:
		m := make(map[string]any, len(t))
		for _, mem := range t {
			m[mem.key] = plain(mem.val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

type rowBuilder struct {
	columns []string
	index   map[string]int
	rows    []map[string]any
}

func (b *rowBuilder) add(obj object) {
	row := map[string]any{}
	b.flatten("", obj, row)
	b.rows = append(b.rows, row)
}

func (b *rowBuilder) flatten(prefix string, obj object, row map[string]any) {
	for _, m := range obj {
		key := m.key
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := m.val.(object); ok && len(nested) > 0 {
			b.flatten(key, nested, row)
			continue
		}
		if _, seen := b.index[key]; !seen {
			b.index[key] = len(b.columns)
			b.columns = append(b.columns, key)
		}
		row[key] = plain(m.val)
	}
}

func (b *rowBuilder) result() *core.Result {
	res := &core.Result{Columns: b.columns, Rows: make([][]any, len(b.rows))}
	for i, row := range b.rows {
		vals := make([]any, len(b.columns))
		for j, col := range b.columns {
			vals[j] = row[col]
		}
		res.Rows[i] = vals
	}
	return res
}
