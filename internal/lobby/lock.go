package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// RedisLocker serializes the ready-up-and-aggregate sequence per lobby with a
// Redis SetNX lock. Contention is retried with fibonacci backoff up to
// waitTimeout; the lock itself expires after ttl so a crashed holder cannot
// wedge the lobby.
type RedisLocker struct {
	redis       *redis.Client
	ttl         time.Duration
	waitTimeout time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, waitTimeout time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if waitTimeout <= 0 {
		waitTimeout = 3 * time.Second
	}
	return &RedisLocker{redis: client, ttl: ttl, waitTimeout: waitTimeout}
}

var errLockHeld = errors.New("lobby lock already held")

// Acquire blocks until the per-lobby lock is held or the wait budget runs
// out. The returned function releases the lock; only the holder's value can
// delete the key.
func (l *RedisLocker) Acquire(ctx context.Context, lobbyID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("lobby:lock:%s", lobbyID.String())
	lockValue := uuid.NewString()

	backoff := retry.WithMaxDuration(l.waitTimeout, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		acquired, err := l.redis.SetNX(ctx, key, lockValue, l.ttl).Result()
		if err != nil {
			return err
		}
		if !acquired {
			return retry.RetryableError(errLockHeld)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire lobby lock: %w", err)
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return l.redis.Eval(context.Background(), script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}
