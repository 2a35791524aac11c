package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired lease re-acquired by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSweepLock is a lease on a single Redis key taken with SET NX PX.
// Every process running the retry sweep shares it.
type RedisSweepLock struct {
	client redis.UniversalClient
}

// NewRedisSweepLock creates a lock backed by client
func NewRedisSweepLock(client redis.UniversalClient) *RedisSweepLock {
	return &RedisSweepLock{client: client}
}

// Acquire takes the lease for ttl. ok is false when another holder owns it.
// The returned token must be passed to Release.
func (l *RedisSweepLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if token still owns it. Releasing a lease that
// expired or moved to another holder is not an error.
func (l *RedisSweepLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
