package githubclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrep/mcp-codesearch-go/githubsearch"
)

func TestFetchPageRequestShape(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count":        1,
			"incomplete_results": false,
			"items": []map[string]any{{
				"name":       "main.go",
				"path":       "cmd/main.go",
				"html_url":   "https://example.com/blob/main.go",
				"repository": map[string]any{"full_name": "acme/widgets"},
			}},
		})
	}))
	defer srv.Close()

	c := New("secret-token", WithBaseURL(srv.URL))
	res, err := c.FetchPage(context.Background(), githubsearch.PageRequest{
		Query: "needle language:go", Sort: "indexed", Order: "desc", PerPage: 10, Page: 3,
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/search/code", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "needle language:go", q.Get("q"))
	assert.Equal(t, "indexed", q.Get("sort"))
	assert.Equal(t, "desc", q.Get("order"))
	assert.Equal(t, "10", q.Get("per_page"))
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "Bearer secret-token", got.Header.Get("Authorization"))
	assert.Equal(t, acceptJSON, got.Header.Get("Accept"))
	assert.Equal(t, apiVersion, got.Header.Get("X-GitHub-Api-Version"))

	require.Len(t, res.Items, 1)
	assert.Equal(t, "acme/widgets", res.Items[0].Repository.FullName)
	assert.Equal(t, 1, res.TotalCount)
	assert.False(t, res.HasNextPage)
}

func TestFetchPageTextMatchAccept(t *testing.T) {
	var accept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		fmt.Fprint(w, `{"total_count":0,"incomplete_results":false,"items":[]}`)
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL))
	_, err := c.FetchPage(context.Background(), githubsearch.PageRequest{Query: "x", PerPage: 5, Page: 1, TextMatch: true})
	require.NoError(t, err)
	assert.Equal(t, acceptTextMatch, accept)
}

func TestFetchPageContinuationFromLinkHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://api.github.com/search/code?q=x&page=2>; rel="next", <https://api.github.com/search/code?q=x&page=5>; rel="last"`)
		fmt.Fprint(w, `{"total_count":50,"incomplete_results":false,"items":[{"name":"a","path":"a","html_url":"u","repository":{"full_name":"r"}}]}`)
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL))
	res, err := c.FetchPage(context.Background(), githubsearch.PageRequest{Query: "x", PerPage: 1, Page: 1})
	require.NoError(t, err)
	assert.True(t, res.HasNextPage)
}

func TestFetchPageRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL))
	_, err := c.FetchPage(context.Background(), githubsearch.PageRequest{Query: "x", PerPage: 1, Page: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.RateLimited)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "rate limit")
}

func TestFetchPageServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message":"upstream sad"}`)
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL))
	_, err := c.FetchPage(context.Background(), githubsearch.PageRequest{Query: "x", PerPage: 1, Page: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.RateLimited)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestLinkHasNext(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`<https://api.github.com/search/code?page=2>; rel="next"`, true},
		{`<https://api.github.com/search/code?page=5>; rel="last"`, false},
		{`<https://x/a?page=5>; rel="last", <https://x/a?page=2>; rel="next"`, true},
		{`<https://x/a?page=2>; rel=next`, true},
		{"garbage", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, linkHasNext(tt.header), "header %q", tt.header)
	}
}
