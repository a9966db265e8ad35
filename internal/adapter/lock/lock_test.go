package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exam-room/internal/domain"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			held, err := l.Acquire(ctx, time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = held.Release(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestLocalLocker_Timeout(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	held, err := l.Acquire(ctx, 0)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)

	start := time.Now()
	_, err = l.Acquire(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	require.NoError(t, held.Release(ctx))
	require.NoError(t, held.Release(ctx))

	again, err := l.Acquire(ctx, 0)
	require.NoError(t, err)
	assert.NoError(t, again.Release(ctx))
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	l := NewLocalLocker()
	held, err := l.Acquire(context.Background(), 0)
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLocker_Acquire(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := "examroom:serializer:lock:global"
	l := NewRedisLocker(db, key, time.Minute)
	l.poll = time.Millisecond
	l.newToken = func() string { return "token-1" }
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(true)
		mock.ExpectEval(releaseScript, []string{key}, "token-1").SetVal(int64(1))

		held, err := l.Acquire(ctx, time.Second)
		require.NoError(t, err)
		assert.NoError(t, held.Release(ctx))
		assert.NoError(t, held.Release(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RetriesUntilFree", func(t *testing.T) {
		mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(false)
		mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(true)

		held, err := l.Acquire(ctx, time.Second)
		require.NoError(t, err)
		assert.NotNil(t, held)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ZeroWaitTriesOnce", func(t *testing.T) {
		mock.ExpectSetNX(key, "token-1", time.Minute).SetVal(false)

		_, err := l.Acquire(ctx, 0)
		assert.ErrorIs(t, err, domain.ErrLockTimeout)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RedisError", func(t *testing.T) {
		redisErr := errors.New("connection refused")
		mock.ExpectSetNX(key, "token-1", time.Minute).SetErr(redisErr)

		_, err := l.Acquire(ctx, time.Second)
		assert.ErrorIs(t, err, redisErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
