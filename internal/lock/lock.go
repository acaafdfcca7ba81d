// Package lock provides the single-active-run guard for batch verification.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by TryLock when another holder owns the lock.
var ErrHeld = errors.New("lock held by another run")

// Locker is a non-blocking mutual exclusion primitive. The returned release
// func must be called exactly once.
type Locker interface {
	TryLock(ctx context.Context) (release func(), err error)
}

// LocalLock guards runs within one process.
type LocalLock struct {
	mu sync.Mutex
}

func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

func (l *LocalLock) TryLock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, ErrHeld
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
