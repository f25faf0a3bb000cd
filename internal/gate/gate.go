// Package gate serialises dispatches: at most one request is inside the
// decode, classify and forward section at any time.
//
// LocalGate covers a single process. RedisGate extends the same guarantee
// to every replica sharing a Redis instance.
package gate

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned when the caller's context ends before the gate
// was acquired.
var ErrCancelled = errors.New("cancelled while waiting for the dispatch gate")

// Release gives the gate back. Calling it more than once is a no-op.
type Release func()

// Gate is a single-permit exclusivity gate.
type Gate interface {
	// Acquire blocks until the caller holds the gate or ctx is done.
	Acquire(ctx context.Context) (Release, error)

	// Mode names the implementation, as reported by the health endpoint.
	Mode() string
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
