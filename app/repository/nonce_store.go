package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore tracks single-use nonces and short-lived counters in a
// TTL-capable key/value store. The signing guard itself is stateless; replay
// detection lives here.
type NonceStore struct {
	rdb    *redis.Client
	prefix string
}

func NewNonceStore(rdb *redis.Client, prefix string) *NonceStore {
	if prefix == "" {
		prefix = "entitlements"
	}
	return &NonceStore{rdb: rdb, prefix: prefix}
}

// MarkUsed records the nonce for ttl and reports whether this was its first
// use. The TTL must be at least as long as the signature validity window.
func (s *NonceStore) MarkUsed(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+":nonce:"+nonce, 1, ttl).Result()
}

// Release frees a nonce so the same signed payload can be retried. Callers
// release only after a failed delivery; a successful one keeps the nonce for
// the full window.
func (s *NonceStore) Release(ctx context.Context, nonce string) error {
	return s.rdb.Del(ctx, s.prefix+":nonce:"+nonce).Err()
}

// IncrWithTTL bumps a named counter, starting its expiry on first increment.
func (s *NonceStore) IncrWithTTL(ctx context.Context, name string, ttl time.Duration) (int64, error) {
	key := s.prefix + ":counter:" + name
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
