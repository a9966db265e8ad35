package service

import (
	"context"
	"errors"
	"time"

	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/metrics"

	"go.uber.org/zap"
)

// DefaultLockWait bounds how long a mutating action waits for the write lock.
const DefaultLockWait = 30 * time.Second

// WriteSerializer runs mutating operations one at a time across the process
// (or across processes, with a shared lock backend).
type WriteSerializer interface {
	// Do runs fn while holding the global write lock. A wait longer than the
	// configured bound fails with a SERVER_BUSY error and fn is not run.
	Do(ctx context.Context, action string, fn func(ctx context.Context) error) error
}

type lockSerializer struct {
	locker domain.Locker
	wait   time.Duration
}

// NewWriteSerializer creates a serializer over locker. A non-positive wait
// uses DefaultLockWait.
func NewWriteSerializer(locker domain.Locker, wait time.Duration) WriteSerializer {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &lockSerializer{locker: locker, wait: wait}
}

func (s *lockSerializer) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	start := time.Now()
	lock, err := s.locker.Acquire(ctx, s.wait)
	metrics.LockWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
			metrics.LockBusyTotal.WithLabelValues(action).Inc()
			logger.Get().Warn("Write lock busy",
				zap.String("action", action),
				zap.Duration("waited", time.Since(start)))
			return domain.NewBusyError()
		}
		return domain.NewInternalError("failed to acquire write lock", err)
	}

	defer func() {
		// Release must run even when the request context is already done.
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Get().Debug("Ignoring write lock release error", zap.String("action", action), zap.Error(err))
		}
	}()

	return fn(ctx)
}
