package githubsearch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/codegrep/mcp-codesearch-go/mcp"
	"github.com/codegrep/mcp-codesearch-go/mcpservice"
	"github.com/codegrep/mcp-codesearch-go/sessions"
)

// ToolName is the method-level name the tool is invoked by.
const ToolName = "search-code"

// PreviewLimit bounds the resource_link preview so consumers that cannot
// render arbitrary-size payloads still get actionable navigation targets.
const PreviewLimit = 50

// SearchCodeArgs is the wire shape of the search-code tool's arguments.
type SearchCodeArgs struct {
	Q         string `json:"q" jsonschema:"minLength=1,description=Code search query; supports qualifiers like repo: and language:"`
	Sort      string `json:"sort,omitempty" jsonschema:"enum=indexed,description=Sort by recency of indexing instead of best match"`
	Order     string `json:"order,omitempty" jsonschema:"enum=asc,enum=desc,description=Sort direction; only used with sort"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"minimum=1,maximum=25,description=Upstream page size (default 25)"`
	Page      int    `json:"page,omitempty" jsonschema:"minimum=1,description=Starting page number (default 1)"`
	MaxItems  int    `json:"max_items,omitempty" jsonschema:"minimum=1,maximum=100,description=Cap on total items returned (default 30)"`
	MaxPages  int    `json:"max_pages,omitempty" jsonschema:"minimum=1,description=Cap on upstream pages fetched (default unbounded)"`
	TextMatch bool   `json:"text_match,omitempty" jsonschema:"description=Annotate text-match spans on each hit"`
}

// NewSearchCodeTool builds the search-code tool over the given paged source.
//
// The tool result is composite: a one-line summary, the full JSON payload
// {total, incomplete, items} (as both a text block and structuredContent),
// and up to PreviewLimit resource_link blocks. Validation and upstream
// failures surface as tool-level error results, never as protocol errors.
func NewSearchCodeTool(fetcher PageFetcher) mcpservice.StaticTool {
	return mcpservice.NewTool[SearchCodeArgs](ToolName,
		func(ctx context.Context, _ *sessions.Session, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[SearchCodeArgs]) error {
			a := r.Args()
			res, err := Aggregate(ctx, fetcher, Request{
				Query:         a.Q,
				Sort:          a.Sort,
				Order:         a.Order,
				PerPage:       a.PerPage,
				Page:          a.Page,
				MaxItemsTotal: a.MaxItems,
				MaxPages:      a.MaxPages,
				TextMatch:     a.TextMatch,
			})
			if err != nil {
				var verr *ValidationError
				w.SetError(true)
				if errors.As(err, &verr) {
					return w.AppendText(verr.Error())
				}
				return w.AppendText("code search failed: " + err.Error())
			}

			if err := w.AppendText(res.Summary()); err != nil {
				return err
			}

			payload, err := json.Marshal(res)
			if err != nil {
				return err
			}
			if err := w.AppendText(string(payload)); err != nil {
				return err
			}
			w.SetStructured(map[string]any{
				"total":      res.TotalCount,
				"incomplete": res.Incomplete,
				"items":      res.Items,
			})

			return w.AppendBlocks(previewLinks(res.Items)...)
		},
		mcpservice.WithToolDescription("Search code across the hosted source-control platform and aggregate paginated results into one bounded response."),
	)
}

// previewLinks renders the first PreviewLimit items as resource_link blocks
// carrying the source location URL, the repository-qualified path and a
// display label.
func previewLinks(items []Item) []mcp.ContentBlock {
	n := len(items)
	if n > PreviewLimit {
		n = PreviewLimit
	}
	blocks := make([]mcp.ContentBlock, 0, n)
	for _, it := range items[:n] {
		blocks = append(blocks, mcp.ContentBlock{
			Type:        "resource_link",
			URI:         it.HTMLURL,
			Name:        it.Name,
			Description: it.Repository.FullName + "/" + it.Path,
		})
	}
	return blocks
}
