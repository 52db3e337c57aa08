// Package fetch loads table rows for an applied filter, either from a
// remote query endpoint or directly from a store.
//
// Fetchers never return errors. Transport, status and shape failures are
// logged and yield an empty slice, so callers can always replace the
// displayed rows with the result.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/rows"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is logged.
const maxErrorBody = 512

// Fetcher loads display rows for a query.
type Fetcher interface {
	FetchRows(ctx context.Context, q rows.Query) []rows.Row
}

// Client fetches rows from a query endpoint over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the endpoint rooted at baseURL. Rows are
// requested from baseURL + "/data".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "fetch_client").Logger()
	return c
}

// FetchRows posts q to the data endpoint. The sort property is renamed to
// its wire label first.
func (c *Client) FetchRows(ctx context.Context, q rows.Query) []rows.Row {
	url := c.baseURL + "/data"
	records, err := c.post(ctx, url, wireQuery(q))
	if err != nil {
		c.logger.Error().Err(err).Str("url", url).Msg("fetching rows")
		return []rows.Row{}
	}
	return rows.ToRows(records, c.logger)
}

func (c *Client) post(ctx context.Context, url string, q rows.Query) ([]rows.Record, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, maxErrorBody))
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("response is not an array: %s", truncate(trimmed, maxErrorBody))
	}
	var records []rows.Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

func wireQuery(q rows.Query) rows.Query {
	if q.Sort != nil {
		s := *q.Sort
		s.Property = rows.WireSortProperty(s.Property)
		q.Sort = &s
	}
	return q
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// StoreFetcher serves rows straight from a store, for deployments where
// the query endpoint runs in-process.
type StoreFetcher struct {
	store  rows.Store
	logger zerolog.Logger
}

// NewStoreFetcher creates a fetcher backed by store.
func NewStoreFetcher(store rows.Store, logger zerolog.Logger) *StoreFetcher {
	return &StoreFetcher{store: store, logger: logger.With().Str("component", "store_fetcher").Logger()}
}

// FetchRows queries the store with the same contract as Client.FetchRows.
func (f *StoreFetcher) FetchRows(ctx context.Context, q rows.Query) []rows.Row {
	records, err := f.store.Query(ctx, wireQuery(q))
	if err != nil {
		f.logger.Error().Err(err).Msg("querying rows")
		return []rows.Row{}
	}
	return rows.ToRows(records, f.logger)
}
