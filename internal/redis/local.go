package redisclient

import (
	"context"
	"sync"
	"time"
)

type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
	ttl  time.Duration
}

// NewLocalLocker returns an in-process Locker for single-replica setups
// without Redis. ttl bounds how long fn may run.
func NewLocalLocker(ttl time.Duration) Locker {
	return &localLocker{
		held: make(map[string]struct{}),
		ttl:  ttl,
	}
}

func (l *localLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	if l.ttl > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}
	return fn(ctx)
}
