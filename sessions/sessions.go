package sessions

import "errors"

var (
	// ErrSessionNotFound indicates the presented session id is not registered.
	// At the HTTP boundary this is a client protocol error, not a server fault.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTransportClosed is returned when publishing to or subscribing on a
	// transport whose session has been released.
	ErrTransportClosed = errors.New("session transport closed")
)

// ClientInfo identifies the client that opened the session.
type ClientInfo struct {
	Name    string
	Version string
}

// Meta carries the immutable facts negotiated when a session is created.
type Meta struct {
	UserID          string
	ProtocolVersion string
	ClientInfo      ClientInfo
}

// Session binds an opaque id to its exclusively owned Transport.
// Sessions are immutable after creation; all mutable stream state lives in
// the Transport.
type Session struct {
	id        string
	meta      Meta
	transport *Transport
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.meta.UserID }

// ProtocolVersion is the negotiated protocol version baked into the session.
func (s *Session) ProtocolVersion() string { return s.meta.ProtocolVersion }

func (s *Session) ClientInfo() ClientInfo { return s.meta.ClientInfo }

// Transport returns the live streaming channel bound to this session.
func (s *Session) Transport() *Transport { return s.transport }
