// Package batcher implements the per-model coordinator that assembles
// bounded batches from concurrent single-item submissions, dispatches them
// to the model's batched callable, and resolves each slot's completion in
// isolation. Grounded on the shard/startLoop idiom of concurrentbatchprocessor-
// style pipelines: a dedicated goroutine owns all mutable state and
// communicates with submitters only through a channel and per-slot
// completion handles.
package batcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ifihan/blazerpc/internal/metrics"
	"github.com/Ifihan/blazerpc/internal/registry"
	"github.com/Ifihan/blazerpc/internal/rpcerrors"
)

// Options configures one model's Batcher.
type Options struct {
	ModelName    string
	MaxBatchSize int
	Timeout      time.Duration
	Callable     registry.BatchedFunc
	Logger       *zap.Logger
	Metrics      *metrics.BatcherMetrics
}

// Batcher is the per-model coordinator. One Batcher owns exclusive mutable
// state (its pending-slot slice); it is never touched by any goroutine
// other than its own run loop.
type Batcher struct {
	opts Options

	input chan *Slot
	// stopped is closed by Stop() and observed by run(); it is distinct
	// from closing input because slots collected before shutdown but not
	// yet dispatched must still be flushed.
	stopped chan struct{}
	exited  chan struct{}
}

// New constructs a Batcher and starts its background collector goroutine.
// The batcher transitions Idle -> Collecting -> Dispatching -> Idle for as
// long as Stop has not been called.
func New(opts Options) *Batcher {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := &Batcher{
		opts:    opts,
		input:   make(chan *Slot),
		stopped: make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go b.run()
	return b
}

// Submit enqueues one item and blocks the caller until its completion is
// resolved or ctx is cancelled. It never blocks beyond the cost of
// enqueueing onto the (unbuffered) input channel; once the slot is
// admitted, waiting for the result is the caller's own suspension point,
// not additional submission cost.
func (b *Batcher) Submit(ctx context.Context, args map[string]any) (any, error) {
	slot := newSlot(args)
	select {
	case b.input <- slot:
	case <-b.stopped:
		return nil, &rpcerrors.ConfigurationError{Reason: "server shutting down"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.Submitted.Inc()
	}
	select {
	case c := <-slot.result:
		return c.value, c.err
	case <-ctx.Done():
		// RPC-level cancellation: the slot still participates in its
		// batch, we just stop waiting for it here.
		return nil, ctx.Err()
	}
}

// Stop closes the input channel's logical acceptance (via stopped) and
// blocks until the background collector has drained any already-collected
// slots and exited.
func (b *Batcher) Stop() {
	close(b.stopped)
	<-b.exited
}

func (b *Batcher) run() {
	defer close(b.exited)
	for {
		// Idle: block until the first slot arrives, or shutdown.
		var first *Slot
		select {
		case first = <-b.input:
		case <-b.stopped:
			b.drainRemaining()
			return
		}

		pending := []*Slot{first}
		deadline := time.Now().Add(b.opts.Timeout)

	collecting:
		for len(pending) < b.opts.MaxBatchSize {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			timer := time.NewTimer(remaining)
			select {
			case s := <-b.input:
				pending = append(pending, s)
				if b.opts.Metrics != nil {
					b.opts.Metrics.QueueDepth.Set(float64(len(pending)))
				}
			case <-timer.C:
				timer.Stop()
				break collecting
			case <-b.stopped:
				timer.Stop()
				b.dispatch(pending)
				if b.opts.Metrics != nil {
					b.opts.Metrics.QueueDepth.Set(0)
				}
				b.drainRemaining()
				return
			}
			timer.Stop()
		}

		b.dispatch(pending)
		if b.opts.Metrics != nil {
			b.opts.Metrics.QueueDepth.Set(0)
		}
	}
}

// drainRemaining is entered once b.stopped has fired with the batcher
// already Idle (no partial batch in flight): any slot that still manages
// to arrive after shutdown was requested receives a ConfigurationError.
// The channel itself is never closed (submitters would panic on send to a
// closed channel); stopped is the shutdown signal instead.
func (b *Batcher) drainRemaining() {
	for {
		select {
		case s := <-b.input:
			s.resolve(nil, &rpcerrors.ConfigurationError{Reason: "server shutting down"})
		default:
			return
		}
	}
}

// dispatch builds parallel argument vectors, invokes the callable once, and
// resolves every slot's completion before returning to Idle. Never called
// with an empty batch (the run loop always seeds pending with at least
// `first`).
func (b *Batcher) dispatch(pending []*Slot) {
	if len(pending) == 0 {
		return
	}
	vectors := buildVectors(pending)

	results, err := b.invoke(vectors)
	if b.opts.Metrics != nil {
		b.opts.Metrics.Dispatched.Inc()
		b.opts.Metrics.BatchSize.Observe(float64(len(pending)))
	}

	if err != nil {
		wrapped := &rpcerrors.InferenceError{ModelName: b.opts.ModelName, Cause: err}
		for _, s := range pending {
			s.resolve(nil, wrapped)
		}
		return
	}

	if len(results) != len(pending) {
		wrapped := &rpcerrors.InferenceError{
			ModelName: b.opts.ModelName,
			Cause:     fmt.Errorf("batched callable returned %d results for a batch of %d", len(results), len(pending)),
		}
		for _, s := range pending {
			s.resolve(nil, wrapped)
		}
		return
	}

	for i, s := range pending {
		if itemErr, ok := results[i].(error); ok {
			if b.opts.Metrics != nil {
				b.opts.Metrics.ItemErrors.Inc()
			}
			s.resolve(nil, &rpcerrors.InferenceError{ModelName: b.opts.ModelName, Cause: itemErr})
			continue
		}
		s.resolve(results[i], nil)
	}
}

func (b *Batcher) invoke(vectors map[string][]any) (results []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model callable panicked: %v", r)
		}
	}()
	return b.opts.Callable(vectors)
}

// buildVectors assembles one slice per named parameter, positionally
// aligned with pending in arrival (admission) order.
func buildVectors(pending []*Slot) map[string][]any {
	vectors := make(map[string][]any)
	for _, s := range pending {
		for name, v := range s.Args {
			vectors[name] = append(vectors[name], v)
		}
	}
	return vectors
}
