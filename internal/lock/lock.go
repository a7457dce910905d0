// Package lock provides the single busy flag that serializes commits, syncs
// and deletions against the record store.
package lock

import (
	"context"
	"errors"
)

// ErrHeld is returned by TryAcquire when another holder owns the lock.
var ErrHeld = errors.New("lock is held")

// Locker never waits: a held lock is reported immediately.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}
