package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// Redis shares the busy flag between service replicas that write to the
// same store. The TTL bounds how long a crashed holder can block others.
type Redis struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	onErr  func(error)
}

// NewRedis needs only script support from client; *redis.Client and
// *redis.ClusterClient both qualify.
func NewRedis(client redislock.RedisClient, key string, ttl time.Duration) *Redis {
	return &Redis{
		locker: redislock.New(client),
		key:    key,
		ttl:    ttl,
	}
}

// OnReleaseError registers a callback for failed releases, e.g. for logging.
func (r *Redis) OnReleaseError(fn func(error)) {
	r.onErr = fn
}

func (r *Redis) TryAcquire(ctx context.Context) (func(), error) {
	l, err := r.locker.Obtain(ctx, r.key, r.ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", r.key, err)
	}

	return func() {
		// Release must run even when the caller's context is already done.
		if err := l.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) && r.onErr != nil {
			r.onErr(err)
		}
	}, nil
}
