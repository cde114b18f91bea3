package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codegrep/mcp-codesearch-go/mcp"
	"github.com/codegrep/mcp-codesearch-go/sessions"
)

// ToolHandler is the function signature used to handle a tool invocation.
type ToolHandler func(ctx context.Context, session *sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)

// StaticTool pairs an MCP tool descriptor with its handler.
type StaticTool struct {
	Descriptor mcp.Tool
	Handler    ToolHandler
}

// ToolsContainer owns a threadsafe set of tool descriptors and handlers and
// dispatches calls to them.
type ToolsContainer struct {
	mu       sync.RWMutex
	tools    []mcp.Tool
	handlers map[string]ToolHandler
}

// NewToolsContainer constructs a container with the given tool definitions.
// Duplicate names resolve last-write-wins.
func NewToolsContainer(defs ...StaticTool) *ToolsContainer {
	tc := &ToolsContainer{handlers: make(map[string]ToolHandler, len(defs))}
	for _, d := range defs {
		tc.tools = append(tc.tools, d.Descriptor)
		if d.Handler != nil {
			tc.handlers[d.Descriptor.Name] = d.Handler
		}
	}
	return tc
}

// ListTools returns the full descriptor set. The tool set here is small and
// static, so no cursor paging is offered.
func (tc *ToolsContainer) ListTools(ctx context.Context, session *sessions.Session) ([]mcp.Tool, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	out := make([]mcp.Tool, len(tc.tools))
	copy(out, tc.tools)
	return out, nil
}

// ErrToolNotFound reports a tools/call naming no registered tool. Callers
// distinguish it from a tool handler failing, which is an internal error.
var ErrToolNotFound = errors.New("tool not found")

// CallTool dispatches a request to the named tool if present.
func (tc *ToolsContainer) CallTool(ctx context.Context, session *sessions.Session, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("%w: missing tool name", ErrToolNotFound)
	}
	tc.mu.RLock()
	h := tc.handlers[req.Name]
	tc.mu.RUnlock()
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, req.Name)
	}
	return h(ctx, session, req)
}

// Errorf returns an error CallToolResult with a single text block and IsError=true.
func Errorf(format string, a ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}},
		IsError: true,
	}
}
