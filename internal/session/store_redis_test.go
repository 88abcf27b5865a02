package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-ask/internal/knowledge"
)

func TestNewRedisStore_NilClient(t *testing.T) {
	if _, err := NewRedisStore(nil, 0); err == nil {
		t.Fatal("NewRedisStore(nil) should return error")
	}
}

func TestNewRedisStore_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	store, err := NewRedisStore(client, 0)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	if store.ttl != defaultTTL {
		t.Errorf("ttl = %v, want %v", store.ttl, defaultTTL)
	}
	if got := store.key("42"); got != "pai-ask:session:42" {
		t.Errorf("key(42) = %q", got)
	}
}

// TestRedisStore_RoundTrip runs against a real server when ASK_TEST_CACHE_URL is set.
func TestRedisStore_RoundTrip(t *testing.T) {
	url := os.Getenv("ASK_TEST_CACHE_URL")
	if testing.Short() || url == "" {
		t.Skip("set ASK_TEST_CACHE_URL to run against Redis")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	store, _ := NewRedisStore(client, time.Minute)
	userID := "test-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, store.key(userID))

	got, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subject.IsSet() {
		t.Fatalf("Get() of missing key = %+v, want zero", got)
	}

	if err := store.Put(ctx, userID, Session{}.Select(knowledge.Science)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err = store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subject != knowledge.Science {
		t.Errorf("Subject = %q, want science", got.Subject)
	}
	if ttl := client.TTL(ctx, store.key(userID)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within (0, 1m]", ttl)
	}
}

func TestRedisStore_GetSlidesTTL(t *testing.T) {
	url := os.Getenv("ASK_TEST_CACHE_URL")
	if testing.Short() || url == "" {
		t.Skip("set ASK_TEST_CACHE_URL to run against Redis")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	store, _ := NewRedisStore(client, time.Hour)
	userID := "test-slide-" + time.Now().Format("150405.000000")
	defer client.Del(ctx, store.key(userID))

	if err := store.Put(ctx, userID, Session{}.Select(knowledge.Maths)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := client.Expire(ctx, store.key(userID), 10*time.Second).Err(); err != nil {
		t.Fatalf("Expire() error = %v", err)
	}

	got, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subject != knowledge.Maths {
		t.Errorf("Subject = %q, want maths", got.Subject)
	}
	if ttl := client.TTL(ctx, store.key(userID)).Val(); ttl <= 10*time.Second {
		t.Errorf("TTL after Get = %v, want refreshed to about 1h", ttl)
	}
}
