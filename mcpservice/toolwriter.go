package mcpservice

import (
	"errors"
	"sync"

	"github.com/codegrep/mcp-codesearch-go/mcp"
)

// ToolResponseWriter lets a tool handler incrementally compose a composite
// CallToolResult: text blocks, link blocks and a structured payload are all
// parts of one response.
//
// Composition is deliberately independent of the inbound request context: a
// caller that goes away mid-call must not turn a completed run into an
// error. Delivery failure is the transport boundary's concern, not the
// writer's. Writes after finalization return ErrFinalized.
type ToolResponseWriter interface {
	AppendText(text string) error
	AppendBlocks(blocks ...mcp.ContentBlock) error
	SetStructured(v map[string]any)
	SetError(isError bool)
	// Result finalizes and returns the accumulated result. It is idempotent.
	Result() *mcp.CallToolResult
}

// ErrFinalized is returned when attempting to write after Result() was called.
var ErrFinalized = errors.New("result already finalized")

type toolResponseWriter struct {
	mu        sync.Mutex
	finalized bool

	blocks     []mcp.ContentBlock
	structured map[string]any
	isError    bool
}

var _ ToolResponseWriter = (*toolResponseWriter)(nil)

func newToolResponseWriter() *toolResponseWriter {
	return &toolResponseWriter{}
}

func (w *toolResponseWriter) AppendText(text string) error {
	if text == "" {
		return nil
	}
	return w.AppendBlocks(mcp.ContentBlock{Type: "text", Text: text})
}

func (w *toolResponseWriter) AppendBlocks(blocks ...mcp.ContentBlock) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finalized {
		return ErrFinalized
	}
	w.blocks = append(w.blocks, blocks...)
	return nil
}

func (w *toolResponseWriter) SetStructured(v map[string]any) {
	w.mu.Lock()
	if !w.finalized {
		w.structured = v
	}
	w.mu.Unlock()
}

func (w *toolResponseWriter) SetError(isError bool) {
	w.mu.Lock()
	w.isError = isError
	w.mu.Unlock()
}

func (w *toolResponseWriter) Result() *mcp.CallToolResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalized = true
	return &mcp.CallToolResult{
		Content:           append([]mcp.ContentBlock(nil), w.blocks...),
		StructuredContent: w.structured,
		IsError:           w.isError,
	}
}
