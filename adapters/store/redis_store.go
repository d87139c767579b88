package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "cyberaudit:revoked:"

// RedisStore keeps revoked session ids in Redis until their access tokens expire
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a revocation store on client
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{client: client, now: time.Now}
}

// InvalidateToken revokes sessionID for expiry. The first revocation time is
// kept and an existing revocation is only ever extended.
func (s *RedisStore) InvalidateToken(ctx context.Context, sessionID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}
	key := revokedSessionPrefix + sessionID
	revokedAt := strconv.FormatInt(s.now().Unix(), 10)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, revokedAt, expiry)
		pipe.ExpireGT(ctx, key, expiry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("revoke session %s: %w", sessionID, err)
	}
	return nil
}

// IsTokenInvalidated reports whether sessionID has been revoked
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedSessionPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s revocation: %w", sessionID, err)
	}
	return n > 0, nil
}
