package githubsearch

import (
	"context"
	"fmt"
)

// Repository identifies the repository owning a search hit.
type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url,omitzero"`
}

// MatchSpan is one highlighted span inside a text-match fragment.
type MatchSpan struct {
	Text    string `json:"text"`
	Indices []int  `json:"indices"`
}

// TextMatch annotates where the query matched inside a file fragment. Only
// populated when the request asked for text-match annotations.
type TextMatch struct {
	Fragment string      `json:"fragment"`
	Matches  []MatchSpan `json:"matches,omitempty"`
}

// Item is one code-search hit, treated as opaque by the aggregation loop.
type Item struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	SHA         string      `json:"sha,omitzero"`
	HTMLURL     string      `json:"html_url"`
	Repository  Repository  `json:"repository"`
	Score       float64     `json:"score,omitzero"`
	TextMatches []TextMatch `json:"text_matches,omitempty"`
}

// PageRequest asks the upstream source for one page of results.
type PageRequest struct {
	Query     string
	Sort      string
	Order     string
	PerPage   int
	Page      int
	TextMatch bool
}

// PageResult is one fetched page plus the upstream's three signals: the
// total result count (trusted on the first page only), the incomplete-result
// marker, and the continuation signal derived from the source's next-page
// link rather than from count arithmetic.
type PageResult struct {
	Items             []Item
	TotalCount        int
	IncompleteResults bool
	HasNextPage       bool
}

// PageFetcher is the abstract paged source the aggregation loop drives.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (*PageResult, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, req PageRequest) (*PageResult, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	return f(ctx, req)
}

// Result is the accumulated output of one aggregation run.
type Result struct {
	// TotalCount is the count reported by the first fetched page. Later
	// pages may disagree; they are ignored for this field.
	TotalCount int `json:"total"`
	// Incomplete is sticky: true once any page reported an incomplete
	// result set, never cleared within the run.
	Incomplete bool `json:"incomplete"`
	// Items are collected in upstream page order, append-only.
	Items []Item `json:"items"`
	// PagesFetched counts upstream calls actually made.
	PagesFetched int `json:"-"`
}

// runState is the aggregation loop's explicit state.
type runState int

const (
	// stateFetching means the loop will fetch another page.
	stateFetching runState = iota
	// stateBoundedStop means a caller bound or the absolute ceiling ended
	// the run before the source was exhausted.
	stateBoundedStop
	// stateExhausted means the source has no more results: an empty page or
	// a missing continuation signal. This is true completion, which callers
	// can distinguish by comparing len(Items) against TotalCount.
	stateExhausted
)

// step folds one fetched page into res and returns the next loop state. It
// is pure apart from mutating res, and encodes the termination policy's
// check order: empty page, caller item bound, absolute ceiling, then the
// continuation signal. The bound checks truncate so that len(res.Items)
// never exceeds the bound that fired.
func step(res *Result, page *PageResult, maxItems int) runState {
	if res.PagesFetched == 0 {
		res.TotalCount = page.TotalCount
	}
	res.Incomplete = res.Incomplete || page.IncompleteResults
	res.PagesFetched++
	res.Items = append(res.Items, page.Items...)

	if len(page.Items) == 0 {
		return stateExhausted
	}
	if len(res.Items) >= maxItems {
		res.Items = res.Items[:maxItems]
		return stateBoundedStop
	}
	if len(res.Items) >= AbsoluteItemCeiling {
		res.Items = res.Items[:AbsoluteItemCeiling]
		return stateBoundedStop
	}
	if !page.HasNextPage {
		return stateExhausted
	}
	return stateFetching
}

// Aggregate validates req and drives the paging loop against fetcher until a
// bound fires, the source is exhausted, or a fetch fails. On failure the
// whole run fails: partial results are discarded, never returned.
func Aggregate(ctx context.Context, fetcher PageFetcher, req Request) (*Result, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	res := &Result{Items: []Item{}}
	pageNum := req.Page
	for st := stateFetching; st == stateFetching; pageNum++ {
		// The page bound pre-empts the fetch so a final unnecessary upstream
		// call is never made.
		if req.MaxPages > 0 && res.PagesFetched >= req.MaxPages {
			break
		}
		page, err := fetcher.FetchPage(ctx, PageRequest{
			Query:     req.Query,
			Sort:      req.Sort,
			Order:     req.Order,
			PerPage:   req.PerPage,
			Page:      pageNum,
			TextMatch: req.TextMatch,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", pageNum, err)
		}
		st = step(res, page, req.MaxItemsTotal)
	}
	return res, nil
}

// Summary renders the one-line human-readable digest of a run.
func (r *Result) Summary() string {
	return fmt.Sprintf("Found %d result(s); returning %d across %d page(s) fetched.",
		r.TotalCount, len(r.Items), r.PagesFetched)
}
