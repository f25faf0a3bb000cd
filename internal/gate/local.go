package gate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// LocalGate is an in-process gate backed by a weighted semaphore of size 1.
type LocalGate struct {
	sem *semaphore.Weighted
}

func NewLocalGate() *LocalGate {
	return &LocalGate{sem: semaphore.NewWeighted(1)}
}

func (g *LocalGate) Mode() string { return "local" }

func (g *LocalGate) Acquire(ctx context.Context) (Release, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, cancelled(ctx)
	}

	var once sync.Once
	return func() {
		once.Do(func() { g.sem.Release(1) })
	}, nil
}
