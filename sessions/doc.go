// Package sessions turns the stateless request/response HTTP surface into a
// stateful, session-addressed streaming endpoint.
//
// The Registry owns the mapping from opaque session id to a live Transport.
// Ids are generated server-side with cryptographically strong randomness and
// are never chosen by the caller; a caller presenting an id the registry does
// not know is a client error, not a server fault.
//
// A Session's Transport is exclusively owned by its registry entry: the
// registry creates it fully attached (a Session returned from Create is
// immediately usable) and is the sole party responsible for closing it on
// Release. Session state is in-memory and volatile; nothing survives the
// process.
package sessions
