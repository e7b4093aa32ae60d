package chx

import (
	"context"
	"sync"

	"github.com/marcodd23/go-chpool/pkg/errorx"
	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/semaphore"
)

// ErrRuntimeClosed is returned by BlockOn once the last reference to a Runtime is closed.
var ErrRuntimeClosed = errorx.NewGeneralError("runtime is closed")

// Runtime is the execution context shared by a ConnectionManager, its clones and
// every connection they produce.
//
// Client calls are context driven and may suspend on network I/O, while the pool
// contract is synchronous. BlockOn bridges the two: it runs the call on its own
// goroutine and blocks the caller until the call has finished. Calls from
// different connections run independently; a hung call only blocks its caller.
// An optional worker cap bounds how many calls run at once.
//
// A Runtime is reference counted. NewRuntime returns it with one reference,
// Retain adds one and Close drops one; the last Close rejects new work and waits
// for the calls still in flight.
type Runtime struct {
	workers  int
	sem      *semaphore.Weighted // nil when unbounded
	inFlight sync.WaitGroup

	mu     sync.RWMutex
	refs   int
	closed bool
}

// NewRuntime allocates a Runtime running at most workers calls at a time.
// Zero leaves the number of concurrent calls unbounded.
func NewRuntime(workers int) (*Runtime, error) {
	if workers < 0 {
		return nil, errorx.NewGeneralError("invalid runtime worker count %d", workers)
	}

	rt := &Runtime{
		workers: workers,
		refs:    1,
	}
	if workers > 0 {
		rt.sem = semaphore.NewWeighted(int64(workers))
	}

	return rt, nil
}

// Workers returns the maximum number of concurrent calls, zero when unbounded.
func (rt *Runtime) Workers() int {
	return rt.workers
}

// Retain adds a reference. Retaining a closed Runtime has no effect.
func (rt *Runtime) Retain() *Runtime {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.closed {
		rt.refs++
	}

	return rt
}

// Closed reports whether the last reference has been closed.
func (rt *Runtime) Closed() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return rt.closed
}

// Close drops a reference. The last one shuts the Runtime down and blocks until
// in-flight calls have returned.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}

	rt.refs--
	if rt.refs > 0 {
		rt.mu.Unlock()
		return nil
	}

	rt.closed = true
	rt.mu.Unlock()

	rt.inFlight.Wait()

	return nil
}

// BlockOn runs task on the Runtime and waits for its result.
//
// It returns when task returns or ctx is done, whichever happens first; in the
// second case task keeps its worker slot until it observes the cancellation. A panic in
// task is returned as an error.
func (rt *Runtime) BlockOn(ctx context.Context, task func(ctx context.Context) error) error {
	_, err := BlockOnResult(ctx, rt, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, task(ctx)
	})

	return err
}

type taskResult[T any] struct {
	value T
	err   error
}

// BlockOnResult is BlockOn for tasks producing a value.
func BlockOnResult[T any](ctx context.Context, rt *Runtime, task func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	rt.mu.RLock()
	if rt.closed {
		rt.mu.RUnlock()
		return zero, ErrRuntimeClosed
	}
	rt.inFlight.Add(1)
	rt.mu.RUnlock()

	if rt.sem != nil {
		if err := rt.sem.Acquire(ctx, 1); err != nil {
			rt.inFlight.Done()
			return zero, errors.Wrap(err, "waiting for a runtime worker")
		}
	}

	done := make(chan taskResult[T], 1)

	go func() {
		defer rt.inFlight.Done()
		if rt.sem != nil {
			defer rt.sem.Release(1)
		}

		var res taskResult[T]
		var pc panics.Catcher
		pc.Try(func() {
			res.value, res.err = task(ctx)
		})

		if recovered := pc.Recovered(); recovered != nil {
			res = taskResult[T]{err: errorx.NewGeneralErrorWrapper(recovered.AsError(), "runtime task panicked")}
		}

		done <- res
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, errors.Wrap(ctx.Err(), "runtime task abandoned")
	}
}
