// Package lock provides a single-instance Redis mutex. Order mutations
// hold one of these per order so stock restore and ledger updates never
// interleave across processes.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired the key is already held by another owner
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrNotHeld the key expired or belongs to another owner
	ErrNotHeld = errors.New("lock not held")
)

// releaseScript deletes the key only when the stored token matches, so
// an expired holder cannot release a lock somebody else re-acquired.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisLock is one acquisition attempt on one key. The token identifies
// the owner; release is refused when the token no longer matches.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewRedisLock creates a lock handle for key. token must be unique per
// acquisition attempt.
func NewRedisLock(client *redis.Client, key, token string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, token: token, ttl: ttl}
}

// Lock makes a single SETNX attempt.
func (l *RedisLock) Lock(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	return nil
}

// TryLock attempts acquisition up to maxRetries times, waiting
// retryDelay between attempts. Returns ErrNotAcquired once the retry
// budget is spent.
func (l *RedisLock) TryLock(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		err := l.Lock(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return ErrNotAcquired
}

// Unlock releases the lock if this handle still owns it.
func (l *RedisLock) Unlock(ctx context.Context) error {
	released, err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int()
	if err != nil {
		return err
	}
	if released == 0 {
		return ErrNotHeld
	}
	return nil
}
