// Package streaminghttp exposes the MCP streaming HTTP transport: a
// stateless request/response HTTP surface turned into a stateful,
// session-addressed streaming endpoint.
//
// Session addressing rides on the Mcp-Session-Id header. The initialize
// handshake is exempt from session enforcement and always creates a fresh
// session; every other call must present a known id or is rejected before it
// reaches any tool logic. Responses to requests stream back as server-sent
// events on the POST response body; a GET on the endpoint attaches to the
// session's message stream with Last-Event-ID resume; DELETE releases the
// session.
package streaminghttp
