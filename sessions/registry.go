package sessions

import (
	"context"

	"github.com/google/uuid"
)

// Registry creates, looks up and evicts sessions. It is safe for concurrent
// use by any number of inbound calls.
type Registry struct {
	store Store
	newID func() string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStore swaps the backing Store. Intended for tests and for callers that
// want to observe or instrument registry mutations.
func WithStore(s Store) RegistryOption {
	return func(r *Registry) { r.store = s }
}

// WithIDGenerator overrides session id generation. The generator must
// produce values with negligible collision probability; a collision would
// silently merge two independent sessions.
func WithIDGenerator(fn func() string) RegistryOption {
	return func(r *Registry) { r.newID = fn }
}

// NewRegistry constructs a Registry with an in-memory store and UUIDv4 ids
// (crypto/rand backed) unless overridden.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		store: NewMemoryStore(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create generates a fresh id, attaches a new transport and registers the
// session. The session is fully usable before it is published to the store,
// so a lookup racing this call can never observe a session whose transport
// is not yet attached. Only Create publishes freshly generated ids, so a
// lookup for an id that Create has not yet returned cannot occur.
func (r *Registry) Create(ctx context.Context, meta Meta) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess := &Session{
		id:        r.newID(),
		meta:      meta,
		transport: newTransport(),
	}
	r.store.Put(sess.id, sess)
	return sess, nil
}

// Resolve returns the existing session for id, with no side effects. An
// unknown id yields ErrSessionNotFound; it never creates a session.
func (r *Registry) Resolve(id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	sess, ok := r.store.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Release idempotently removes the entry for id and closes its transport.
// Releasing an unknown id is a no-op.
func (r *Registry) Release(id string) {
	sess, ok := r.store.Get(id)
	if !ok {
		return
	}
	r.store.Delete(id)
	sess.transport.Close()
}
