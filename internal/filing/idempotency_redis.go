package filing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taxpilot/pkg/platform/sentinel"
)

// RedisIdempotencyStore records confirmations in Redis so they survive
// process restarts. Keys carry a TTL well past any retention a portal keeps
// for its own idempotency window.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

const defaultIdempotencyTTL = 30 * 24 * time.Hour

func NewRedisIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Confirmation(ctx context.Context, key string) (string, error) {
	confirmation, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("get confirmation: %w", err)
	}
	return confirmation, nil
}

func (s *RedisIdempotencyStore) Record(ctx context.Context, key, confirmationID string) error {
	set, err := s.client.SetNX(ctx, key, confirmationID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("record confirmation: %w", err)
	}
	if set {
		return nil
	}
	existing, err := s.Confirmation(ctx, key)
	if err != nil {
		return fmt.Errorf("record confirmation: %w", err)
	}
	if existing != confirmationID {
		return sentinel.ErrConflict
	}
	return nil
}
