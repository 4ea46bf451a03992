package inventory

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long a mutation waits for the global lock.
const DefaultLockTimeout = 30 * time.Second

// LockCoordinator is the single process-wide exclusive lock guarding every
// mutating operation. Acquisition waits at most Timeout and then fails with
// ErrLockTimeout; there is no internal retry.
type LockCoordinator struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	metrics *Metrics
}

// NewLockCoordinator returns a coordinator with the given wait bound.
// A non-positive timeout selects DefaultLockTimeout.
func NewLockCoordinator(timeout time.Duration) *LockCoordinator {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockCoordinator{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Timeout returns the configured wait bound.
func (l *LockCoordinator) Timeout() time.Duration { return l.timeout }

// Acquire blocks until the lock is held or the bound elapses. The returned
// release func is idempotent.
func (l *LockCoordinator) Acquire(ctx context.Context) (release func(), err error) {
	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		l.metrics.observeLockWait(time.Since(start), false)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	l.metrics.observeLockWait(time.Since(start), true)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.sem.Release(1)
	}, nil
}

// WithLock runs fn while holding the lock. The lock is released on every
// exit path of fn, including panics.
func (l *LockCoordinator) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
