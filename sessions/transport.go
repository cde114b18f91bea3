package sessions

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// MessageHandlerFunc handles ordered messages delivered on a session stream.
// A non-nil error terminates the subscription with that error.
type MessageHandlerFunc func(ctx context.Context, msgID string, msg []byte) error

type message struct {
	id   string
	data []byte
}

type subscriber struct {
	notify chan struct{}
}

// Transport is the live streaming channel bound to one session. Messages are
// appended with monotonically increasing event ids and retained for the
// session's lifetime so a reconnecting consumer can resume from a
// Last-Event-ID cursor.
type Transport struct {
	mu       sync.Mutex
	counter  int64
	messages []message
	subs     map[*subscriber]struct{}
	closed   bool
	done     chan struct{}
}

func newTransport() *Transport {
	return &Transport{
		subs: make(map[*subscriber]struct{}),
		done: make(chan struct{}),
	}
}

// Publish appends data to the session stream and wakes any subscribers.
// It returns the event id assigned to the message. Publishing on a closed
// transport fails with ErrTransportClosed; callers at the write boundary
// treat that as "send failed", not as a failure of the work that produced
// the message.
func (t *Transport) Publish(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrTransportClosed
	}
	t.counter++
	evID := strconv.FormatInt(t.counter, 10)
	t.messages = append(t.messages, message{id: evID, data: append([]byte(nil), data...)})
	subs := make([]*subscriber, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
	return evID, nil
}

// Subscribe delivers messages after lastEventID (or only new messages when
// lastEventID is empty) to fn, in order, until ctx is cancelled, fn returns
// an error, or the transport closes. A closed transport drains what remains
// and returns nil.
func (t *Transport) Subscribe(ctx context.Context, lastEventID string, fn MessageHandlerFunc) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	cursor := len(t.messages)
	if lastEventID != "" {
		found := false
		for i := range t.messages {
			if t.messages[i].id == lastEventID {
				cursor = i + 1
				found = true
				break
			}
		}
		if !found {
			t.mu.Unlock()
			return fmt.Errorf("unknown last event id %q", lastEventID)
		}
	}
	sub := &subscriber{notify: make(chan struct{}, 1)}
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
	}()

	for {
		t.mu.Lock()
		pending := make([]message, len(t.messages)-cursor)
		copy(pending, t.messages[cursor:])
		closed := t.closed
		t.mu.Unlock()

		for _, m := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, m.id, m.data); err != nil {
				return err
			}
			cursor++
		}
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.notify:
		case <-t.done:
		}
	}
}

// Close marks the transport closed and wakes subscribers so they can drain
// and return. Close is idempotent.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.done)
	t.mu.Unlock()
}

// Closed reports whether the transport has been closed.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
