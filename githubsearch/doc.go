// Package githubsearch drives a bounded aggregation loop over the paged
// upstream code-search source and folds the pages into a single bounded
// result with summary metadata.
//
// The loop is modeled as a small state machine (fetching, bounded-stop,
// exhausted) with a pure step function, so the termination policy is
// testable without any network I/O. Pages are fetched strictly in increasing
// page-number order, one at a time: page N+1's continuation depends on page
// N's continuation signal.
//
// Failure is whole-run: any fetch error aborts the aggregation and discards
// partial results. Retry policy, if any, belongs to the upstream client.
package githubsearch
