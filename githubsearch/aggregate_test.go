package githubsearch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed sequence of pages keyed by page number and
// records every request it saw.
type fakeSource struct {
	pages    map[int]*PageResult
	err      error
	errOn    int // page number that fails; 0 = never
	requests []PageRequest
}

func (f *fakeSource) FetchPage(_ context.Context, req PageRequest) (*PageResult, error) {
	f.requests = append(f.requests, req)
	if f.errOn != 0 && req.Page == f.errOn {
		return nil, f.err
	}
	page, ok := f.pages[req.Page]
	if !ok {
		return &PageResult{}, nil
	}
	return page, nil
}

func mkItems(n int, prefix string) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			Name:       fmt.Sprintf("%s-%d.go", prefix, i),
			Path:       fmt.Sprintf("pkg/%s-%d.go", prefix, i),
			HTMLURL:    fmt.Sprintf("https://example.com/%s/%d", prefix, i),
			Repository: Repository{FullName: "acme/widgets"},
		}
	}
	return items
}

func TestAggregateMaxItemsTruncatesThirdPage(t *testing.T) {
	// Upstream has 3 pages of 2 items each (6 total); max_items=4 must stop
	// after 2 fetches with exactly 4 items.
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(2, "a"), TotalCount: 6, HasNextPage: true},
		2: {Items: mkItems(2, "b"), TotalCount: 6, HasNextPage: true},
		3: {Items: mkItems(2, "c"), TotalCount: 6},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", PerPage: 2, MaxItemsTotal: 4})
	require.NoError(t, err)

	assert.Len(t, src.requests, 2, "third page must not be fetched")
	assert.Len(t, res.Items, 4)
	assert.Equal(t, 6, res.TotalCount)
	assert.Equal(t, 2, res.PagesFetched)
}

func TestAggregateEmptyFirstPage(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: nil, TotalCount: 0},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "nothing"})
	require.NoError(t, err)

	assert.Len(t, src.requests, 1)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.TotalCount)
	assert.False(t, res.Incomplete)
}

func TestAggregateMaxPagesPreemptsContinuation(t *testing.T) {
	// Upstream signals a next page and a large total; max_pages=1 wins.
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(2, "a"), TotalCount: 50, HasNextPage: true},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", MaxPages: 1})
	require.NoError(t, err)

	assert.Len(t, src.requests, 1)
	assert.Equal(t, 1, res.PagesFetched)
	assert.Equal(t, 50, res.TotalCount)
	assert.Len(t, res.Items, 2)
}

func TestAggregateStickyIncomplete(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(2, "a"), TotalCount: 4, IncompleteResults: true, HasNextPage: true},
		2: {Items: mkItems(2, "b"), TotalCount: 4, IncompleteResults: false},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", MaxItemsTotal: 100})
	require.NoError(t, err)
	assert.True(t, res.Incomplete, "incomplete must stay true once any page set it")
}

func TestAggregateTotalCountFixedAtFirstPage(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(2, "a"), TotalCount: 10, HasNextPage: true},
		2: {Items: mkItems(2, "b"), TotalCount: 999},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", MaxItemsTotal: 100})
	require.NoError(t, err)
	assert.Equal(t, 10, res.TotalCount, "later pages must not change total_count")
}

func TestAggregateExhaustionViaContinuationSignal(t *testing.T) {
	// Continuation comes from the next-page link, not count arithmetic: the
	// total claims more results, but a missing link terminates paging.
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(3, "a"), TotalCount: 100, HasNextPage: false},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", MaxItemsTotal: 100})
	require.NoError(t, err)
	assert.Len(t, src.requests, 1)
	assert.Len(t, res.Items, 3)
}

func TestAggregatePagesFetchedInIncreasingOrder(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		2: {Items: mkItems(2, "a"), TotalCount: 6, HasNextPage: true},
		3: {Items: mkItems(2, "b"), TotalCount: 6, HasNextPage: true},
		4: {Items: mkItems(2, "c"), TotalCount: 6},
	}}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", Page: 2, MaxItemsTotal: 100})
	require.NoError(t, err)
	require.Len(t, src.requests, 3)
	for i, req := range src.requests {
		assert.Equal(t, 2+i, req.Page)
	}
	assert.Len(t, res.Items, 6)
}

func TestAggregateFailFastDiscardsPartials(t *testing.T) {
	src := &fakeSource{
		pages: map[int]*PageResult{
			1: {Items: mkItems(2, "a"), TotalCount: 6, HasNextPage: true},
		},
		errOn: 2,
		err:   errors.New("upstream rate limited"),
	}

	res, err := Aggregate(context.Background(), src, Request{Query: "needle", MaxItemsTotal: 100})
	require.Error(t, err)
	assert.Nil(t, res, "no partial results on failure")
	assert.ErrorContains(t, err, "rate limited")
}

func TestAggregateQualifiersPassedThrough(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(1, "a"), TotalCount: 1},
	}}

	_, err := Aggregate(context.Background(), src, Request{
		Query: "needle", Sort: "indexed", Order: "desc", PerPage: 10, TextMatch: true,
	})
	require.NoError(t, err)
	require.Len(t, src.requests, 1)
	req := src.requests[0]
	assert.Equal(t, "needle", req.Query)
	assert.Equal(t, "indexed", req.Sort)
	assert.Equal(t, "desc", req.Order)
	assert.Equal(t, 10, req.PerPage)
	assert.True(t, req.TextMatch)
}

func TestAggregateValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"empty query", Request{Query: "  "}, "q"},
		{"per_page too large", Request{Query: "x", PerPage: 26}, "per_page"},
		{"per_page negative", Request{Query: "x", PerPage: -1}, "per_page"},
		{"page negative", Request{Query: "x", Page: -2}, "page"},
		{"max_items too large", Request{Query: "x", MaxItemsTotal: 101}, "max_items"},
		{"max_pages negative", Request{Query: "x", MaxPages: -1}, "max_pages"},
		{"bad sort", Request{Query: "x", Sort: "stars"}, "sort"},
		{"bad order", Request{Query: "x", Order: "sideways"}, "order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			_, err := Aggregate(context.Background(), src, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, src.requests, "no upstream call on validation failure")
		})
	}
}

func TestAggregateDefaults(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(1, "a"), TotalCount: 1},
	}}
	_, err := Aggregate(context.Background(), src, Request{Query: "x"})
	require.NoError(t, err)
	require.Len(t, src.requests, 1)
	assert.Equal(t, DefaultPerPage, src.requests[0].PerPage)
	assert.Equal(t, 1, src.requests[0].Page)
}

func TestStepAbsoluteCeiling(t *testing.T) {
	// Drive the pure step function directly past the system ceiling; the
	// caller bound is lifted above it to show the ceiling pre-empts.
	res := &Result{}
	res.Items = mkItems(999, "seed")
	res.PagesFetched = 40

	st := step(res, &PageResult{Items: mkItems(5, "tip"), HasNextPage: true}, AbsoluteItemCeiling+500)
	assert.Equal(t, stateBoundedStop, st)
	assert.Len(t, res.Items, AbsoluteItemCeiling)
}

func TestStepStates(t *testing.T) {
	t.Run("empty page is exhaustion, not error", func(t *testing.T) {
		res := &Result{}
		st := step(res, &PageResult{TotalCount: 7}, 30)
		assert.Equal(t, stateExhausted, st)
		assert.Equal(t, 7, res.TotalCount)
		assert.Equal(t, 1, res.PagesFetched)
	})
	t.Run("bound reached exactly", func(t *testing.T) {
		res := &Result{}
		st := step(res, &PageResult{Items: mkItems(4, "a"), HasNextPage: true}, 4)
		assert.Equal(t, stateBoundedStop, st)
		assert.Len(t, res.Items, 4)
	})
	t.Run("continuation present keeps fetching", func(t *testing.T) {
		res := &Result{}
		st := step(res, &PageResult{Items: mkItems(2, "a"), HasNextPage: true}, 30)
		assert.Equal(t, stateFetching, st)
	})
	t.Run("missing continuation exhausts", func(t *testing.T) {
		res := &Result{}
		st := step(res, &PageResult{Items: mkItems(2, "a")}, 30)
		assert.Equal(t, stateExhausted, st)
	})
}

func TestSummary(t *testing.T) {
	res := &Result{TotalCount: 123, Items: mkItems(4, "a"), PagesFetched: 2}
	assert.Equal(t, "Found 123 result(s); returning 4 across 2 page(s) fetched.", res.Summary())
}
