package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// LockKeyPrefix namespaces lock keys.
	LockKeyPrefix = "lock:"
	// DefaultLockRetry is the polling interval while waiting for a held lock.
	DefaultLockRetry = 25 * time.Millisecond
	releaseTimeout   = 2 * time.Second
)

// ErrLockNotHeld is returned by release when the lock expired or was taken by another holder.
var ErrLockNotHeld = errors.New("lock not held")

// Only delete the key if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Locker is a SET NX PX mutual-exclusion lock shared by every instance pointed at the same Redis.
type Locker struct {
	client   *redis.Client
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
	logger   *zap.Logger
}

// NewLocker creates a Redis locker. ttl bounds how long a crashed holder can block others.
func NewLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{
		client:   client,
		ttl:      ttl,
		retry:    DefaultLockRetry,
		newToken: uuid.NewString,
		logger:   logger,
	}
}

// Lock blocks until the lock for key is acquired or ctx is done. The returned func releases it.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := LockKeyPrefix + key
	token := l.newToken()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", redisKey, err)
		}
		if ok {
			return func() {
				if err := l.release(redisKey, token); err != nil {
					l.logger.Warn("redis lock release failed", zap.String("key", redisKey), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", redisKey, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) release(redisKey, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	n, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
