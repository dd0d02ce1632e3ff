// Package idempotency serializes concurrent CreateOrder calls that
// share an idempotency key, using the same Redis SETNX/Lua-script
// locking idiom the ticketing platform uses for seat locks.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order_idem_lock:"

// Lock wraps a Redis client to provide a short-lived mutual-exclusion
// lock per idempotency key. The loser of a race is expected to wait
// briefly, then re-read through the store's idempotency probe.
type Lock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLock(client *redis.Client, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Lock{client: client, ttl: ttl}
}

// acquireScript is SET NX with an owner token, so only the owner that
// acquired the lock is allowed to release it.
var acquireScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
`)

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire attempts to take the lock for idempotencyKey, returning a
// release function and true on success. On contention it returns
// false immediately; callers fall back to the idempotency probe.
func (l *Lock) Acquire(ctx context.Context, idempotencyKey, owner string) (release func(context.Context), acquired bool, err error) {
	key := keyPrefix + idempotencyKey
	result, err := acquireScript.Run(ctx, l.client, []string{key}, owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, false, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if result != 1 {
		return nil, false, nil
	}

	release = func(releaseCtx context.Context) {
		releaseScript.Run(releaseCtx, l.client, []string{key}, owner)
	}
	return release, true, nil
}
