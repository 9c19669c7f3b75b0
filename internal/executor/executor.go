// Package executor adapts a user callable to run safely alongside gRPC's
// goroutine-per-RPC model. Synchronous callables are offloaded onto a
// bounded worker pool so a slow model never starves the server's other
// connections; asynchronous (already-goroutine-driven) callables are
// invoked directly. The pool's bound is a golang.org/x/sync/semaphore.Weighted,
// the same primitive concurrentbatchprocessor-style pipelines use to cap
// concurrency.
package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/Ifihan/blazerpc/internal/registry"
)

// Executor bounds how many synchronous user callables may run
// concurrently, applying natural backpressure to callers when the pool is
// exhausted.
type Executor struct {
	sem *semaphore.Weighted
}

// New creates an Executor with the given worker-pool depth. A depth of 0
// means unbounded (every call runs on its own goroutine immediately).
func New(poolSize int) *Executor {
	if poolSize <= 0 {
		return &Executor{}
	}
	return &Executor{sem: semaphore.NewWeighted(int64(poolSize))}
}

// Execute runs a non-streaming callable for one unbatched request, blocking
// the caller's goroutine until the callable returns or ctx is done. sync
// marks the callable as one that blocks the calling goroutine for the
// duration of its work (registry.ModelDescriptor.Sync); only sync callables
// consume a pool slot. An async callable is assumed to manage its own
// concurrency and is invoked directly.
func (e *Executor) Execute(ctx context.Context, fn registry.UnbatchedFunc, args map[string]any, sync bool) (result any, err error) {
	if sync && e.sem != nil {
		if acqErr := e.sem.Acquire(ctx, 1); acqErr != nil {
			return nil, acqErr
		}
		defer e.sem.Release(1)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model callable panicked: %v", r)
		}
	}()
	return fn(args)
}

// ExecuteBatch runs a batched callable directly (used by the dispatcher
// only when batching is globally disabled but the model's callable is
// still expressed in vectorized form). sync has the same meaning as in
// Execute.
func (e *Executor) ExecuteBatch(ctx context.Context, fn registry.BatchedFunc, vectors map[string][]any, sync bool) (results []any, err error) {
	if sync && e.sem != nil {
		if acqErr := e.sem.Acquire(ctx, 1); acqErr != nil {
			return nil, acqErr
		}
		defer e.sem.Release(1)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model callable panicked: %v", r)
		}
	}()
	return fn(vectors)
}

// streamHandoff is the bounded channel depth used to post yielded stream
// values from a worker-driven generator back to the goroutine draining
// Pump.
const streamHandoff = 16

// Pump drives a streaming model's Generator on the worker pool (if sync)
// and returns a channel of successive values. The channel is closed after
// the generator is exhausted, fails, or ctx is cancelled; exactly one of
// (value sent, error sent) happens per item, and Close is always called on
// the generator when the pump goroutine exits.
type StreamItem struct {
	Value any
	Err   error
}

func (e *Executor) Pump(ctx context.Context, gen registry.Generator, sync bool) <-chan StreamItem {
	out := make(chan StreamItem, streamHandoff)
	go func() {
		defer close(out)
		defer gen.Close()
		if sync && e.sem != nil {
			if acqErr := e.sem.Acquire(ctx, 1); acqErr != nil {
				select {
				case out <- StreamItem{Err: acqErr}:
				case <-ctx.Done():
				}
				return
			}
			defer e.sem.Release(1)
		}
		for {
			v, err := gen.Next()
			if err != nil {
				select {
				case out <- StreamItem{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- StreamItem{Value: v}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
