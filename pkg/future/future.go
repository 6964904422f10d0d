// Package future provides a single-assignment result with continuations.
//
// A Future is resolved exactly once with an Outcome. Continuations registered
// with Then run on the resolving goroutine, or immediately on the caller's
// goroutine when the future is already resolved.
package future

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is the result or failure of an asynchronous operation.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the operation succeeded.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Future is a value that becomes available later.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	outcome   Outcome[T]
	resolved  bool
	callbacks []func(Outcome[T])
}

// New returns an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with o.
func Completed[T any](o Outcome[T]) *Future[T] {
	f := New[T]()
	f.Resolve(o)
	return f
}

// Resolve sets the outcome and runs pending continuations. Later calls are
// ignored and report false.
func (f *Future[T]) Resolve(o Outcome[T]) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.outcome = o
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(o)
	}
	return true
}

// Then registers fn to run with the outcome.
func (f *Future[T]) Then(fn func(Outcome[T])) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	o := f.outcome
	f.mu.Unlock()
	fn(o)
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (Outcome[T], error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome[T]{}, fmt.Errorf("wait for future: %w", ctx.Err())
	}
}
