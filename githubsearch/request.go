package githubsearch

import (
	"fmt"
	"strings"
)

const (
	// MaxPerPage caps the per-call page size. The upstream API documents a
	// larger server-side default, which exceeds this cap; we clamp the
	// default to the cap rather than carry the inconsistency.
	MaxPerPage     = 25
	DefaultPerPage = 25

	// MaxItems bounds what a caller may request in one aggregation run.
	MaxItems        = 100
	DefaultMaxItems = 30

	// AbsoluteItemCeiling is the system-wide hard ceiling on accumulated
	// items, independent of what the caller asked for.
	AbsoluteItemCeiling = 1000
)

// Request carries caller-supplied search parameters. Zero values take
// documented defaults; out-of-range values are rejected, not clamped.
type Request struct {
	// Query is the code-search query string. Required.
	Query string
	// Sort selects an upstream sort mode ("indexed") or best-match when empty.
	Sort string
	// Order is "asc" or "desc"; only meaningful with Sort.
	Order string
	// PerPage is the upstream page size, 1..MaxPerPage. 0 means DefaultPerPage.
	PerPage int
	// Page is the starting upstream page number, >= 1. 0 means 1.
	Page int
	// MaxItemsTotal caps accumulated items, 1..MaxItems. 0 means DefaultMaxItems.
	MaxItemsTotal int
	// MaxPages caps the number of upstream pages fetched. 0 means unbounded;
	// the item bounds remain the only loop safeguard in that case.
	MaxPages int
	// TextMatch asks upstream to annotate text-match spans on each item.
	TextMatch bool
}

// ValidationError reports a malformed request parameter. It is surfaced to
// the caller before any upstream call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// normalize validates the request and fills defaults, returning a copy that
// the aggregation loop can trust.
func (r Request) normalize() (Request, error) {
	if strings.TrimSpace(r.Query) == "" {
		return r, &ValidationError{Field: "q", Reason: "query must be non-empty"}
	}
	switch r.Sort {
	case "", "indexed":
	default:
		return r, &ValidationError{Field: "sort", Reason: fmt.Sprintf("unsupported value %q", r.Sort)}
	}
	switch r.Order {
	case "", "asc", "desc":
	default:
		return r, &ValidationError{Field: "order", Reason: fmt.Sprintf("unsupported value %q", r.Order)}
	}
	if r.PerPage == 0 {
		r.PerPage = DefaultPerPage
	}
	if r.PerPage < 1 || r.PerPage > MaxPerPage {
		return r, &ValidationError{Field: "per_page", Reason: fmt.Sprintf("must be 1..%d", MaxPerPage)}
	}
	if r.Page == 0 {
		r.Page = 1
	}
	if r.Page < 1 {
		return r, &ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	if r.MaxItemsTotal == 0 {
		r.MaxItemsTotal = DefaultMaxItems
	}
	if r.MaxItemsTotal < 1 || r.MaxItemsTotal > MaxItems {
		return r, &ValidationError{Field: "max_items", Reason: fmt.Sprintf("must be 1..%d", MaxItems)}
	}
	if r.MaxPages < 0 {
		return r, &ValidationError{Field: "max_pages", Reason: "must be >= 1 when set"}
	}
	return r, nil
}
