package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "pai-ask:session:"
	defaultTTL       = 24 * time.Hour
)

// RedisStore is a Redis/Dragonfly-backed Store. Every Get and Put slides the
// key's TTL, so a session expires only after ttl without activity.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis session store. A ttl of zero uses 24 hours.
func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Session, error) {
	data, err := s.client.GetEx(ctx, s.key(userID), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}
