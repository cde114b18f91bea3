package githubsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegrep/mcp-codesearch-go/mcp"
)

func callSearchCode(t *testing.T, fetcher PageFetcher, args SearchCodeArgs) *mcp.CallToolResult {
	t.Helper()
	tool := NewSearchCodeTool(fetcher)
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := tool.Handler(context.Background(), nil, &mcp.CallToolRequestReceived{
		Name:      ToolName,
		Arguments: raw,
	})
	require.NoError(t, err)
	return res
}

func TestSearchCodeToolCompositeResult(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(3, "hit"), TotalCount: 3},
	}}

	res := callSearchCode(t, src, SearchCodeArgs{Q: "needle"})
	require.False(t, res.IsError)

	// Part 1: the one-line summary.
	require.NotEmpty(t, res.Content)
	assert.Equal(t, "text", res.Content[0].Type)
	assert.Equal(t, "Found 3 result(s); returning 3 across 1 page(s) fetched.", res.Content[0].Text)

	// Part 2: full JSON payload {total, incomplete, items}.
	require.Greater(t, len(res.Content), 1)
	var payload struct {
		Total      int    `json:"total"`
		Incomplete bool   `json:"incomplete"`
		Items      []Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Content[1].Text), &payload))
	assert.Equal(t, 3, payload.Total)
	assert.Len(t, payload.Items, 3)

	require.NotNil(t, res.StructuredContent)
	assert.Equal(t, 3, res.StructuredContent["total"])

	// Part 3: resource_link navigation targets.
	links := res.Content[2:]
	require.Len(t, links, 3)
	for i, l := range links {
		assert.Equal(t, "resource_link", l.Type)
		assert.Equal(t, fmt.Sprintf("https://example.com/hit/%d", i), l.URI)
		assert.Equal(t, fmt.Sprintf("hit-%d.go", i), l.Name)
		assert.Equal(t, fmt.Sprintf("acme/widgets/pkg/hit-%d.go", i), l.Description)
	}
}

func TestSearchCodeToolPreviewBounded(t *testing.T) {
	src := &fakeSource{pages: map[int]*PageResult{
		1: {Items: mkItems(80, "hit"), TotalCount: 80},
	}}

	res := callSearchCode(t, src, SearchCodeArgs{Q: "needle", MaxItems: 100, PerPage: 25})
	require.False(t, res.IsError)

	var links int
	for _, b := range res.Content {
		if b.Type == "resource_link" {
			links++
		}
	}
	assert.Equal(t, PreviewLimit, links, "preview must stop at %d links", PreviewLimit)
}

func TestSearchCodeToolValidationError(t *testing.T) {
	src := &fakeSource{}
	res := callSearchCode(t, src, SearchCodeArgs{Q: ""})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, "invalid q")
	assert.Empty(t, src.requests)
}

func TestSearchCodeToolUpstreamFailureIsToolError(t *testing.T) {
	src := &fakeSource{errOn: 1, err: errors.New("boom")}
	res := callSearchCode(t, src, SearchCodeArgs{Q: "needle"})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, "code search failed")
}

func TestSearchCodeToolRejectsUnknownFields(t *testing.T) {
	tool := NewSearchCodeTool(&fakeSource{})
	res, err := tool.Handler(context.Background(), nil, &mcp.CallToolRequestReceived{
		Name:      ToolName,
		Arguments: json.RawMessage(`{"q":"x","surprise":true}`),
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
