// Package searchapi calls the backend search endpoint.
package searchapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

// DefaultBaseURL matches the backend's default listen address.
const DefaultBaseURL = "http://localhost:8000"

const defaultTimeout = 60 * time.Second

// ErrStatus wraps any non-2xx response.
var ErrStatus = errors.New("search api returned an error status")

// Client issues GET /api/search requests.
type Client struct {
	baseURL    string
	http       *http.Client
	maxResults int
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithMaxResults sets max_results on every request. Zero leaves it to the
// backend default.
func WithMaxResults(n int) Option {
	return func(cl *Client) { cl.maxResults = n }
}

// New builds a Client for baseURL, falling back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns the papers for query in response order. Records that fail
// validation are dropped and logged. A blank query is rejected without a
// request.
func (c *Client) Search(ctx context.Context, query string) ([]pubmed.Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	params := url.Values{"query": {query}}
	if c.maxResults > 0 {
		params.Set("max_results", strconv.Itoa(c.maxResults))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s (%s)", ErrStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	papers, dropped, err := pubmed.DecodePapers(resp.Body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		zerolog.Ctx(ctx).Warn().Int("dropped", dropped).Str("query", query).Msg("discarded malformed papers")
	}
	return papers, nil
}
