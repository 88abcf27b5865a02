package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(ttl)
	store.now = clock.now
	return store, clock
}

func TestNewMemoryStore_DefaultTTL(t *testing.T) {
	if got := NewMemoryStore(0).ttl; got != defaultTTL {
		t.Errorf("ttl = %v, want %v", got, defaultTTL)
	}
}

func TestMemoryStore_GetSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(time.Hour)

	_ = store.Put(ctx, "u1", Session{}.Select(knowledge.Science))
	for range 5 {
		clock.advance(50 * time.Minute)
		got, _ := store.Get(ctx, "u1")
		if got.Subject != knowledge.Science {
			t.Fatalf("Subject = %q after %v of activity, want science", got.Subject, clock.t)
		}
	}

	clock.advance(61 * time.Minute)
	got, _ := store.Get(ctx, "u1")
	if got.Subject.IsSet() {
		t.Errorf("Subject = %q after idle ttl, want unselected", got.Subject)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want expired entry removed", store.Len())
	}
}

func TestMemoryStore_PutSweepsIdleSessions(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(time.Hour)

	for i := range 100 {
		_ = store.Put(ctx, fmt.Sprintf("widget-%d", i), Session{}.Select(knowledge.Maths))
	}
	if store.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", store.Len())
	}

	clock.advance(2 * time.Hour)
	_ = store.Put(ctx, "fresh", Session{}.Select(knowledge.Science))
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want only the fresh session", store.Len())
	}
}
