package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock only if it still holds the token of the
// acquisition being released. A lease that expired and was re-acquired
// carries a different token and stays untouched.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker implements leased per-key mutual exclusion on top of SET NX.
// It keeps no state of its own: each acquisition yields a fresh token that
// the caller hands back on release, so concurrent acquisitions of the same
// key through one locker never interfere with each other.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (r *RedisLocker) AcquireIfAbsent(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisLocker) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	return releaseLockScript.Run(ctx, r.client, []string{key}, token).Err()
}
