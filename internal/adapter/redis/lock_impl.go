package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/image-scraper-service/internal/repository"
	"github.com/user/image-scraper-service/pkg/utils"
)

const lockKeyPrefix = "lock:"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// LockerImpl provides a concrete implementation for the Locker interface using
// SET NX PX. The TTL bounds how long a crashed holder can block others; a live
// holder keeps extending it until release.
type LockerImpl struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker creates a new instance of LockerImpl.
func NewLocker(client *redis.Client, ttl time.Duration) *LockerImpl {
	return &LockerImpl{client: client, ttl: ttl, retry: 50 * time.Millisecond}
}

// Acquire polls until the lock is taken or ctx is done.
func (l *LockerImpl) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + utils.HashURL(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			renewCtx, stop := context.WithCancel(context.Background())
			renewed := make(chan struct{})
			go l.renew(renewCtx, redisKey, token, renewed)

			return func() {
				stop()
				<-renewed
				// Use a fresh context: the caller's may already be cancelled.
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrLockNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// renew extends the lock every third of its TTL until ctx ends or another
// holder owns the key.
func (l *LockerImpl) renew(ctx context.Context, redisKey, token string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(max(l.ttl/3, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		held, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
		if err == nil && held == 0 {
			return
		}
	}
}
