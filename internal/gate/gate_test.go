package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exercise runs n workers through g and returns the highest number of
// workers observed inside the gate at once.
func exercise(t *testing.T, gates []Gate, n int) int32 {
	t.Helper()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			release, err := gates[i%len(gates)].Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			cur := inside.Add(1)
			for {
				prev := maxSeen.Load()
				if cur <= prev || maxSeen.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
		}(i)
	}

	wg.Wait()
	return maxSeen.Load()
}

func TestLocalGate_MutualExclusion(t *testing.T) {
	g := NewLocalGate()

	assert.Equal(t, int32(1), exercise(t, []Gate{g}, 20))
	assert.Equal(t, "local", g.Mode())
}

func TestLocalGate_CancelledWhileWaiting(t *testing.T) {
	g := NewLocalGate()

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	// the cancelled waiter did not keep a permit
	release, err = g.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestLocalGate_ReleaseIsIdempotent(t *testing.T) {
	g := NewLocalGate()

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)

	release()
	assert.NotPanics(t, assert.PanicTestFunc(release))

	release, err = g.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func newRedisGates(t *testing.T, n int) ([]Gate, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	gates := make([]Gate, 0, n)
	for i := 0; i < n; i++ {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		gates = append(gates, NewRedisGate(client, "test:gate", 10*time.Second, 5*time.Millisecond))
	}

	return gates, mr
}

func TestRedisGate_MutualExclusionAcrossReplicas(t *testing.T) {
	gates, _ := newRedisGates(t, 3)

	assert.Equal(t, int32(1), exercise(t, gates, 12))
	assert.Equal(t, "redis", gates[0].Mode())
}

func TestRedisGate_ReleaseDeletesLock(t *testing.T) {
	gates, mr := newRedisGates(t, 1)

	release, err := gates[0].Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:gate"))

	release()
	assert.False(t, mr.Exists("test:gate"))
}

func TestRedisGate_CancelledWhileOtherReplicaHolds(t *testing.T) {
	gates, _ := newRedisGates(t, 2)

	release, err := gates[0].Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = gates[1].Acquire(ctx)
	assert.ErrorIs(t, err, ErrCancelled)
}
