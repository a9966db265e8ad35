package lock

import (
	"context"
	"sync"
	"time"

	"exam-room/internal/domain"
)

// LocalLocker is a process-local lock built on a one-slot channel.
type LocalLocker struct {
	sem chan struct{}
}

var _ domain.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

func (l *LocalLocker) Acquire(ctx context.Context, wait time.Duration) (domain.Lock, error) {
	select {
	case l.sem <- struct{}{}:
		return &localLock{owner: l}, nil
	default:
	}
	if wait <= 0 {
		return nil, domain.ErrLockTimeout
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
		return &localLock{owner: l}, nil
	case <-timer.C:
		return nil, domain.ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type localLock struct {
	owner *LocalLocker
	once  sync.Once
}

func (l *localLock) Release(ctx context.Context) error {
	l.once.Do(func() { <-l.owner.sem })
	return nil
}
