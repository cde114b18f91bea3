// Package mcpservice is the tool surface the streaming HTTP transport
// dispatches into: a threadsafe container of tool descriptors and handlers,
// a typed tool builder that reflects input schemas from Go structs, and a
// response writer for composing composite tool results.
package mcpservice
