// Package githubclient is the upstream collaborator: an HTTP client for the
// hosted platform's code-search API that implements githubsearch.PageFetcher.
// It performs no retries; any failure is returned to the aggregation loop,
// which fails the whole run.
package githubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/codegrep/mcp-codesearch-go/githubsearch"
	"github.com/codegrep/mcp-codesearch-go/internal/logctx"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "mcp-codesearch-go"

	apiVersion = "2022-11-28"

	acceptJSON      = "application/vnd.github+json"
	acceptTextMatch = "application/vnd.github.text-match+json"
)

// APIError is a non-2xx answer from the upstream API.
type APIError struct {
	StatusCode  int
	Message     string
	RateLimited bool
}

func (e *APIError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("github: rate limited (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Client calls the code-search endpoint. The zero value is not usable; use New.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	log        *slog.Logger
}

var _ githubsearch.PageFetcher = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different API root (GHES, test stubs).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the slog logger used for per-page fetch logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New constructs a Client. token may be empty for unauthenticated calls
// (heavily rate limited upstream, but valid).
func New(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		userAgent:  defaultUserAgent,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchCodePage is the wire shape of one code-search response page.
type searchCodePage struct {
	TotalCount        int                 `json:"total_count"`
	IncompleteResults bool                `json:"incomplete_results"`
	Items             []githubsearch.Item `json:"items"`
}

// FetchPage implements githubsearch.PageFetcher against GET /search/code.
// The next-page continuation is derived from the response's Link header, not
// from arithmetic on counts.
func (c *Client) FetchPage(ctx context.Context, req githubsearch.PageRequest) (*githubsearch.PageResult, error) {
	ctx = logctx.WithSearchData(ctx, &logctx.SearchData{Query: req.Query, Page: req.Page})

	q := url.Values{}
	q.Set("q", req.Query)
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Order != "" {
		q.Set("order", req.Order)
	}
	q.Set("per_page", strconv.Itoa(req.PerPage))
	q.Set("page", strconv.Itoa(req.Page))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/code?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if req.TextMatch {
		httpReq.Header.Set("Accept", acceptTextMatch)
	} else {
		httpReq.Header.Set("Accept", acceptJSON)
	}
	httpReq.Header.Set("X-GitHub-Api-Version", apiVersion)
	httpReq.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Message = body.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests ||
			(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
			apiErr.RateLimited = true
		}
		c.log.WarnContext(ctx, "search.page.fail",
			slog.Int("status", resp.StatusCode),
			slog.Bool("rate_limited", apiErr.RateLimited))
		return nil, apiErr
	}

	var page searchCodePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	res := &githubsearch.PageResult{
		Items:             page.Items,
		TotalCount:        page.TotalCount,
		IncompleteResults: page.IncompleteResults,
		HasNextPage:       linkHasNext(resp.Header.Get("Link")),
	}
	c.log.DebugContext(ctx, "search.page.ok",
		slog.Int("items", len(res.Items)),
		slog.Bool("has_next", res.HasNextPage),
		slog.Duration("dur", time.Since(start)))
	return res, nil
}
