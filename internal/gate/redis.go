package gate

import (
	"context"
	"sync"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/logger"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// RedisGate holds a Redis lock for the whole dispatch so replicas sharing
// the same lock name take turns.
//
// A process first takes its LocalGate, so at most one goroutine per
// replica polls Redis.
type RedisGate struct {
	local      *LocalGate
	redsync    *redsync.Redsync
	name       string
	expiry     time.Duration
	retryDelay time.Duration
}

// NewRedisGate returns a cluster-wide gate.
//
// expiry must outlive the longest dispatch, otherwise another replica may
// take the lock while a backend call is still running.
func NewRedisGate(client redis.UniversalClient, name string, expiry, retryDelay time.Duration) *RedisGate {
	return &RedisGate{
		local:      NewLocalGate(),
		redsync:    redsync.New(goredis.NewPool(client)),
		name:       name,
		expiry:     expiry,
		retryDelay: retryDelay,
	}
}

func (g *RedisGate) Mode() string { return "redis" }

func (g *RedisGate) Acquire(ctx context.Context) (Release, error) {
	releaseLocal, err := g.local.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	mutex := g.redsync.NewMutex(g.name,
		redsync.WithExpiry(g.expiry),
		redsync.WithTries(1),
	)

	log := logger.FromContext(ctx)

	for {
		err := mutex.LockContext(ctx)
		if err == nil {
			break
		}

		if ctx.Err() != nil {
			releaseLocal()
			return nil, cancelled(ctx)
		}

		log.Debug().Err(err).Str("lock", g.name).Msg("dispatch gate held elsewhere, retrying")

		timer := time.NewTimer(g.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			releaseLocal()
			return nil, cancelled(ctx)
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be gone
			if ok, err := mutex.UnlockContext(context.Background()); err != nil || !ok {
				log.Warn().Err(err).Str("lock", g.name).Msg("failed to release dispatch gate lock, it will expire")
			}
			releaseLocal()
		})
	}, nil
}
