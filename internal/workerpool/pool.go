// Package workerpool provides the bounded worker-thread pool spec.md
// §5 requires: "any backend call that performs synchronous blocking
// I/O ... is offloaded to a bounded worker-thread pool; the façade
// suspends until the worker completes." Grounded on
// golang.org/x/sync/semaphore for bounded concurrent submission with
// backpressure — submissions beyond the bound queue on the semaphore
// rather than dropping, and golang.org/x/sync/errgroup's
// context-propagation idiom for cancellation, both already direct
// dependencies of the teacher this module descends from.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs at most a fixed number of blocking operations concurrently.
// internal/world dispatches every public operation through a Pool so
// that, per spec.md §5's suspension-point rule, Backend and World
// calls always suspend at least once.
type Pool struct {
	sem *semaphore.Weighted
}

// New creates a Pool bounded to maxConcurrency simultaneous
// operations. maxConcurrency <= 0 is treated as 1.
func New(maxConcurrency int64) *Pool {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &Pool{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Submit acquires a slot (queueing if the pool is saturated) and runs
// fn, returning its result. A cancelled ctx aborts the wait for a slot
// without starting fn. Once fn is running, cancellation does not kill
// its goroutine — per spec.md §5 Cancellation, work "either completes
// or is detected as cancelled at its next checkpoint" — but Submit
// itself returns as soon as ctx is done, so the caller is never left
// waiting on a fn that races ahead unobserved. The slot stays held
// until fn itself returns.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
