package models

import (
	"context"
	"sync"
)

// Work is a unit of work executed by the worker pool.
type Work[T any] func(ctx context.Context) (T, error)

// Result carries the outcome of a Work invocation.
type Result[T any] struct {
	Data T
	Err  error
}

// Queue is a minimal FIFO used by the worker pool for idle workers and
// pending work.
type Queue[T any] []T

func (q *Queue[T]) Len() int { return len(*q) }

func (q *Queue[T]) Push(t T) {
	*q = append(*q, t)
}

func (q *Queue[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}

// Future resolves once the work it tracks has produced a result. Stop cancels
// the work's context without waiting for it.
type Future[T any] struct {
	value  T
	done   chan struct{}
	cancel context.CancelFunc
	lock   sync.Mutex
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		v := <-input
		f.lock.Lock()
		f.value = v
		f.lock.Unlock()

		f.cancel()
		close(f.done)
	}()

	return f
}

// Wait blocks until the work resolves or ctx expires.
func (f *Future[T]) Wait(ctx context.Context) (value T, resolved bool) {
	select {
	case <-f.done:
		f.lock.Lock()
		defer f.lock.Unlock()
		return f.value, true
	case <-ctx.Done():
		var none T
		return none, false
	}
}

// Poll returns the result without blocking.
func (f *Future[T]) Poll() (value T, isResolved bool) {
	select {
	case <-f.done:
		f.lock.Lock()
		defer f.lock.Unlock()
		return f.value, true
	default:
		var none T
		return none, false
	}
}

// Stop cancels the work's context. The work decides how to wind down.
func (f *Future[T]) Stop() {
	f.cancel()
}
