package lock

import (
	"context"
	"sync"
	"sync/atomic"
)

// Memory is an in-process Locker.
type Memory struct {
	held atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) TryAcquire(_ context.Context) (func(), error) {
	if !m.held.CompareAndSwap(false, true) {
		return nil, ErrHeld
	}
	var once sync.Once
	return func() {
		once.Do(func() { m.held.Store(false) })
	}, nil
}

// Held reports whether the lock is currently owned.
func (m *Memory) Held() bool {
	return m.held.Load()
}
