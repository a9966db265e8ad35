package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/util"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

const defaultPollInterval = 100 * time.Millisecond

// RedisLocker is a lock shared by every process that uses the same redis key.
// The TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	client   redis.Cmdable
	key      string
	ttl      time.Duration
	poll     time.Duration
	newToken func() string
}

var _ domain.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redis.Cmdable, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:   client,
		key:      key,
		ttl:      ttl,
		poll:     defaultPollInterval,
		newToken: util.NewULID,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, wait time.Duration) (domain.Lock, error) {
	token := l.newToken()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis SETNX failed for key %s: %w", l.key, err)
		}
		if ok {
			return &redisLock{locker: l, token: token}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, domain.ErrLockTimeout
		}
		sleep := l.poll
		if remaining < sleep {
			sleep = remaining
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type redisLock struct {
	locker *RedisLocker
	token  string
	once   sync.Once
	err    error
}

func (l *redisLock) Release(ctx context.Context) error {
	l.once.Do(func() {
		err := l.locker.client.Eval(ctx, releaseScript, []string{l.locker.key}, l.token).Err()
		if err != nil {
			l.err = fmt.Errorf("redis lock release failed for key %s: %w", l.locker.key, err)
		}
	})
	return l.err
}
