// Package elastic is the HTTP driver for an Elasticsearch-compatible search
// backend. It owns the QueryModel translation and maps backend failures into
// the db sentinel set.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metadex/internal/db"
	"github.com/kailas-cloud/metadex/internal/query"
)

// DefaultTimeout is the per-request timeout when none is configured.
const DefaultTimeout = 30 * time.Second

// Compile-time check: Client implements db.Gateway.
var _ db.Gateway = (*Client)(nil)

// Config holds connection parameters for the search backend.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Client implements db.Gateway over the backend's REST API.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a search backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:     cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/", nil, db.OpPing); err != nil {
		return err
	}
	return nil
}

// WaitForReady polls Ping until the backend responds or the timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search backend: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Search executes a query model and returns matched hits with their backend
// document identifiers.
func (c *Client) Search(ctx context.Context, index string, q *query.Model) (*db.SearchResult, error) {
	body, err := translate(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %w", db.ErrBadQuery, err)}
	}

	raw, err := c.do(ctx, http.MethodPost, "/"+index+"/_search", body, db.OpSearch)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	result := &db.SearchResult{
		Total:        resp.Hits.Total.Value,
		Hits:         make([]db.Hit, 0, len(resp.Hits.Hits)),
		Aggregations: resp.Aggregations,
	}
	for _, h := range resp.Hits.Hits {
		result.Hits = append(result.Hits, db.Hit{DocID: h.ID, Source: h.Source})
	}
	return result, nil
}

// Count executes a query model and returns the number of matching documents.
func (c *Client) Count(ctx context.Context, index string, q *query.Model) (int, error) {
	body, err := translate(q)
	if err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("%w: %w", db.ErrBadQuery, err)}
	}
	// The count endpoint rejects search-only options.
	countBody := map[string]any{"query": body["query"]}

	raw, err := c.do(ctx, http.MethodPost, "/"+index+"/_count", countBody, db.OpCount)
	if err != nil {
		return 0, err
	}

	var resp countResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, &db.Error{Op: db.OpCount, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.Count, nil
}

// CreateDocument writes a new document and returns the backend-generated
// document identifier. Writes are acknowledged only after the index has
// refreshed, so a following existence query sees them.
func (c *Client) CreateDocument(ctx context.Context, index string, doc map[string]any) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, "/"+index+"/_doc?refresh=wait_for", doc, db.OpCreate)
	if err != nil {
		return "", err
	}

	var resp writeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &db.Error{Op: db.OpCreate, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.ID, nil
}

// UpdateDocument replaces the full document body at the given backend
// document identifier.
func (c *Client) UpdateDocument(ctx context.Context, index, docID string, doc map[string]any) error {
	path := "/" + index + "/_doc/" + url.PathEscape(docID) + "?refresh=wait_for"
	if _, err := c.do(ctx, http.MethodPut, path, doc, db.OpUpdate); err != nil {
		return err
	}
	return nil
}

// PatchDocument applies the model's partial-update script server-side.
func (c *Client) PatchDocument(ctx context.Context, index, docID string, q *query.Model) error {
	script := q.UpdateScript()
	if script == nil {
		return &db.Error{Op: db.OpPatch, Err: fmt.Errorf("%w: model carries no update script", db.ErrBadQuery)}
	}
	path := "/" + index + "/_update/" + url.PathEscape(docID) + "?refresh=wait_for"
	if _, err := c.do(ctx, http.MethodPost, path, translateScript(script), db.OpPatch); err != nil {
		return err
	}
	return nil
}

// DeleteDocument removes the document at the given backend identifier.
func (c *Client) DeleteDocument(ctx context.Context, index, docID string) error {
	path := "/" + index + "/_doc/" + url.PathEscape(docID) + "?refresh=wait_for"
	if _, err := c.do(ctx, http.MethodDelete, path, nil, db.OpDelete); err != nil {
		return err
	}
	return nil
}

// do issues one request and classifies non-2xx responses.
func (c *Client) do(ctx context.Context, method, path string, body any, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &db.Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrBackend, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &db.Error{Op: op, Err: fmt.Errorf("%w: read response: %w", db.ErrBackend, err)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	classified := classifyFailure(resp.StatusCode, data)
	c.logger.Debug("search backend request failed",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return nil, &db.Error{Op: op, Err: classified}
}

// classifyFailure maps an HTTP failure into the sentinel set using the
// backend's error type field.
func classifyFailure(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)
	reason := parsed.Error.Reason
	if reason == "" {
		reason = string(body)
	}

	switch {
	case status == http.StatusNotFound && parsed.Error.Type == "index_not_found_exception":
		return fmt.Errorf("%w: %s", db.ErrIndexNotFound, reason)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", db.ErrDocNotFound, reason)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", db.ErrBadQuery, reason)
	default:
		return fmt.Errorf("%w: status %d: %s", db.ErrBackend, status, reason)
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]any `json:"aggregations"`
}

type countResponse struct {
	Count int `json:"count"`
}

type writeResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}
