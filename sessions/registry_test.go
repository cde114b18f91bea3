package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreateIssuesFreshIDs(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess, err := r.Create(context.Background(), Meta{UserID: "u"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if sess.ID() == "" {
			t.Fatal("expected non-empty session id")
		}
		if seen[sess.ID()] {
			t.Fatalf("id %q issued twice", sess.ID())
		}
		seen[sess.ID()] = true
		if sess.Transport() == nil {
			t.Fatal("session returned without an attached transport")
		}
	}
}

func TestResolveReturnsSameInstance(t *testing.T) {
	r := NewRegistry()
	sess, err := r.Create(context.Background(), Meta{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := r.Resolve(sess.ID())
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != sess {
			t.Fatal("Resolve returned a different session instance")
		}
	}
}

func TestResolveUnknownID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
	if _, err := r.Resolve(""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound for empty id, got %v", err)
	}
}

func TestReleaseThenResolveBehavesAsUnknown(t *testing.T) {
	r := NewRegistry()
	sess, err := r.Create(context.Background(), Meta{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	r.Release(sess.ID())
	if _, err := r.Resolve(sess.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound after release, got %v", err)
	}
	if !sess.Transport().Closed() {
		t.Fatal("release must close the owned transport")
	}

	// Idempotent: releasing again is a no-op.
	r.Release(sess.ID())
	r.Release("never-existed")
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := r.Create(context.Background(), Meta{})
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			got, err := r.Resolve(sess.ID())
			if err != nil || got != sess {
				t.Errorf("Resolve after Create: got %v, err %v", got, err)
				return
			}
			r.Release(sess.ID())
			if _, err := r.Resolve(sess.ID()); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("want ErrSessionNotFound after release, got %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestCustomIDGenerator(t *testing.T) {
	n := 0
	r := NewRegistry(WithIDGenerator(func() string {
		n++
		return string(rune('a' + n - 1))
	}))
	a, _ := r.Create(context.Background(), Meta{})
	b, _ := r.Create(context.Background(), Meta{})
	if a.ID() != "a" || b.ID() != "b" {
		t.Fatalf("custom generator not used: %q %q", a.ID(), b.ID())
	}
}
