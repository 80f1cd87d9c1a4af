// Package rally is a read-only client for the Rally Web Services API (WSAPI).
// It covers what a bulk export needs: paged queries, reads by reference and
// field-by-name decoding of the returned records.
package rally

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPageSize is the WSAPI page size used when a query does not set one.
// WSAPI caps pages at 2000 records.
const DefaultPageSize = 200

const maxPageSize = 2000

// ErrNotFound is returned when a reference does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// APIError carries the error strings returned by WSAPI or an unexpected HTTP
// status.
type APIError struct {
	StatusCode int
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("rally: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("rally: HTTP %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

// IntegrationHeaders identify this tool to Rally on every request.
type IntegrationHeaders struct {
	Name    string
	Vendor  string
	Version string
}

// Config holds the connection settings for a Client.
type Config struct {
	// BaseURL is the Rally server including the /slm suffix,
	// e.g. https://rally1.rallydev.com/slm.
	BaseURL    string
	Username   string
	Password   string
	APIVersion string
	PageSize   int
	Timeout    time.Duration
	Headers    IntegrationHeaders
}

// Client issues WSAPI requests.
type Client struct {
	cfg     Config
	http    *http.Client
	service string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rally: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("rally: invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rally: base URL must use http or https, got %q", u.Scheme)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v2.0"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		service: strings.TrimRight(cfg.BaseURL, "/") + "/webservice/" + cfg.APIVersion,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Record is one WSAPI object, keyed by field name.
type Record map[string]any

// Ref returns the object's _ref, or an empty string.
func (r Record) Ref() string {
	s, _ := r["_ref"].(string)
	return s
}

// Query describes a WSAPI query. Workspace and Project are object references.
type Query struct {
	Type             string
	Workspace        string
	Project          string
	QueryString      string
	Fetch            []string
	ProjectScopeUp   bool
	ProjectScopeDown bool
	Order            string
	PageSize         int
	// Limit caps the number of records returned. Zero means no limit.
	Limit int
}

// Result is the outcome of a query.
type Result struct {
	TotalResultCount int
	Records          []Record
}

type queryEnvelope struct {
	QueryResult struct {
		Errors           []string          `json:"Errors"`
		Warnings         []string          `json:"Warnings"`
		TotalResultCount int               `json:"TotalResultCount"`
		StartIndex       int               `json:"StartIndex"`
		PageSize         int               `json:"PageSize"`
		Results          []json.RawMessage `json:"Results"`
	} `json:"QueryResult"`
}

// Find runs q and pages through the results until all records, or Limit
// records, have been collected.
func (c *Client) Find(ctx context.Context, q Query) (*Result, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("rally: query type is required")
	}
	return c.page(ctx, c.service+"/"+strings.ToLower(q.Type), q.values(), q.PageSize, q.Limit)
}

// Collection pages through a collection reference such as a subscription's
// Workspaces.
func (c *Client) Collection(ctx context.Context, ref string, fetch []string) (*Result, error) {
	v := url.Values{}
	if len(fetch) > 0 {
		v.Set("fetch", strings.Join(fetch, ","))
	}
	return c.page(ctx, c.absolute(ref), v, 0, 0)
}

// Read fetches a single object by reference.
func (c *Client) Read(ctx context.Context, ref string, fetch []string) (Record, error) {
	v := url.Values{}
	if len(fetch) > 0 {
		v.Set("fetch", strings.Join(fetch, ","))
	}

	var envelope map[string]json.RawMessage
	if err := c.get(ctx, c.absolute(ref), v, &envelope); err != nil {
		return nil, err
	}

	if raw, ok := envelope["OperationResult"]; ok {
		var op struct {
			Errors []string `json:"Errors"`
		}
		if err := decodeJSON(raw, &op); err != nil {
			return nil, fmt.Errorf("rally: decoding operation result: %w", err)
		}
		if len(op.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(op.Errors, "; "))
		}
	}

	for key, raw := range envelope {
		if key == "OperationResult" {
			continue
		}
		var rec Record
		if err := decodeJSON(raw, &rec); err != nil {
			return nil, fmt.Errorf("rally: decoding %s: %w", key, err)
		}
		if errs := stringSlice(rec["Errors"]); len(errs) > 0 {
			return nil, &APIError{StatusCode: http.StatusOK, Errors: errs}
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (c *Client) page(ctx context.Context, endpoint string, v url.Values, pageSize, limit int) (*Result, error) {
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}

	res := &Result{}
	start := 1
	for {
		v.Set("start", strconv.Itoa(start))
		v.Set("pagesize", strconv.Itoa(pageSize))

		var env queryEnvelope
		if err := c.get(ctx, endpoint, v, &env); err != nil {
			return nil, err
		}
		qr := env.QueryResult
		if len(qr.Errors) > 0 {
			return nil, &APIError{StatusCode: http.StatusOK, Errors: qr.Errors}
		}

		res.TotalResultCount = qr.TotalResultCount
		for _, raw := range qr.Results {
			var rec Record
			if err := decodeJSON(raw, &rec); err != nil {
				return nil, fmt.Errorf("rally: decoding result: %w", err)
			}
			res.Records = append(res.Records, rec)
		}

		if len(qr.Results) == 0 || len(res.Records) >= qr.TotalResultCount {
			break
		}
		if limit > 0 && len(res.Records) >= limit {
			break
		}
		start += len(qr.Results)
	}

	if limit > 0 && len(res.Records) > limit {
		res.Records = res.Records[:limit]
	}
	return res, nil
}

func (c *Client) get(ctx context.Context, endpoint string, v url.Values, out any) error {
	target := endpoint
	if len(v) > 0 {
		target += "?" + v.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("rally: creating request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if h := c.cfg.Headers; h.Name != "" {
		req.Header.Set("X-RallyIntegrationName", h.Name)
		req.Header.Set("X-RallyIntegrationVendor", h.Vendor)
		req.Header.Set("X-RallyIntegrationVersion", h.Version)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("rally: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if msg := strings.TrimSpace(string(body)); msg != "" {
			apiErr.Errors = []string{msg}
		}
		return apiErr
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("rally: decoding response from %s: %w", endpoint, err)
	}
	return nil
}

// absolute turns a relative reference ("/workspace/123") into a full URL.
// Full URLs returned by WSAPI are used as-is.
func (c *Client) absolute(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.service + "/" + strings.TrimLeft(ref, "/")
}

func (q Query) values() url.Values {
	v := url.Values{}
	if len(q.Fetch) > 0 {
		v.Set("fetch", strings.Join(q.Fetch, ","))
	}
	if q.QueryString != "" {
		v.Set("query", q.QueryString)
	}
	if q.Workspace != "" {
		v.Set("workspace", ShortRef(q.Workspace))
	}
	if q.Project != "" {
		v.Set("project", ShortRef(q.Project))
	}
	if q.ProjectScopeUp {
		v.Set("projectScopeUp", "true")
	}
	if q.ProjectScopeDown {
		v.Set("projectScopeDown", "true")
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	return v
}

// ShortRef strips the server and API version from a reference, leaving the
// "/type/objectid" form WSAPI accepts in scoping parameters.
func ShortRef(ref string) string {
	const marker = "/webservice/"
	i := strings.Index(ref, marker)
	if i < 0 {
		return ref
	}
	rest := ref[i+len(marker):]
	if j := strings.Index(rest, "/"); j >= 0 {
		return rest[j:]
	}
	return ref
}

func decodeJSON(raw json.RawMessage, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
