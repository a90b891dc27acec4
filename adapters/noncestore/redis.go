package noncestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
)

// RedisStore implements the NonceStore interface using Redis. Key TTLs
// enforce nonce expiry and GETDEL makes consumption atomic, so two
// concurrent sign-in attempts can never both obtain the same nonce.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed nonce store.
func NewRedisStore(client *redis.Client) ports.NonceStore {
	return &RedisStore{
		client: client,
		prefix: "minigate:nonce:",
	}
}

func (s *RedisStore) key(identifier string, chainID int64) string {
	return fmt.Sprintf("%s%s:%s", s.prefix, identifier, core.ChainRef(chainID))
}

// Save stores a nonce with an absolute expiry. A SET on the same key
// supersedes any prior nonce for the pair.
func (s *RedisStore) Save(ctx context.Context, identifier string, chainID int64, nonce string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("nonce expiry %s is in the past", expiresAt)
	}
	if err := s.client.Set(ctx, s.key(identifier, chainID), nonce, ttl).Err(); err != nil {
		return fmt.Errorf("redis set nonce: %w", err)
	}
	return nil
}

// Consume atomically deletes and returns the nonce for the pair.
func (s *RedisStore) Consume(ctx context.Context, identifier string, chainID int64) (string, error) {
	nonce, err := s.client.GetDel(ctx, s.key(identifier, chainID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrNonceExpiredOrMissing
		}
		return "", fmt.Errorf("redis getdel nonce: %w", err)
	}
	return nonce, nil
}
