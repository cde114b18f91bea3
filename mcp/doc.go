// Package mcp holds the wire types for the subset of the Model Context
// Protocol this server implements: the initialize handshake, tool listing
// and invocation, and the content block shapes used in tool results.
//
// The types mirror the protocol JSON verbatim and carry no behavior. Higher
// layers (mcpservice, streaminghttp) own validation and dispatch.
package mcp
