// Package result provides a uniform handle over data that is either already
// available or still being computed on a worker pool.
package result

import (
	"context"
	"fmt"
	"sync"
)

// Result is either Immediate (built with FromData) or Pending (built with
// FromServer). Both variants share the same API, so callers never have to
// care which one they hold unless they want to show a loading state.
type Result[T any] struct {
	pending  bool
	task     *task
	onCancel func()

	done      chan struct{}
	mu        sync.Mutex
	resolved  bool
	value     T
	err       error
	callbacks []func(T, error)
}

// FromData wraps an already-known value.
func FromData[T any](v T) *Result[T] {
	done := make(chan struct{})
	close(done)
	return &Result[T]{done: done, resolved: true, value: v}
}

// Option configures a pending Result.
type Option[T any] func(*options[T])

type options[T any] struct {
	beforeStart   func() error
	afterComplete func(T)
	onCancel      func()
}

// BeforeStart runs fn synchronously before the work is scheduled. If fn
// fails nothing is scheduled and FromServer returns the error.
func BeforeStart[T any](fn func() error) Option[T] {
	return func(o *options[T]) { o.beforeStart = fn }
}

// AfterComplete runs fn on the worker with the computed value, before the
// Result resolves. It is skipped when the computation fails.
func AfterComplete[T any](fn func(T)) Option[T] {
	return func(o *options[T]) { o.afterComplete = fn }
}

// OnCancel registers fn to run when Cancel is called.
func OnCancel[T any](fn func()) Option[T] {
	return func(o *options[T]) { o.onCancel = fn }
}

// FromServer schedules compute on the pool and returns a pending Result.
func FromServer[T any](pool *Pool, compute func(ctx context.Context) (T, error), opts ...Option[T]) (*Result[T], error) {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}

	if o.beforeStart != nil {
		if err := o.beforeStart(); err != nil {
			return nil, err
		}
	}

	r := &Result[T]{
		pending:  true,
		onCancel: o.onCancel,
		done:     make(chan struct{}),
	}

	run := func(ctx context.Context) {
		r.resolve(safeCompute(ctx, compute, o.afterComplete))
	}
	abort := func() {
		var zero T
		r.resolve(zero, ErrCancelled)
	}

	t, err := pool.submit(run, abort)
	if err != nil {
		return nil, err
	}
	r.task = t
	return r, nil
}

// safeCompute runs compute and then afterComplete, turning a panic in either
// into an error.
func safeCompute[T any](ctx context.Context, compute func(ctx context.Context) (T, error), afterComplete func(T)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, fmt.Errorf("task panicked: %v", p)
		}
	}()
	v, err = compute(ctx)
	if err == nil && afterComplete != nil {
		afterComplete(v)
	}
	return v, err
}

func (r *Result[T]) resolve(v T, err error) {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return
	}
	r.value, r.err, r.resolved = v, err, true
	callbacks := r.callbacks
	r.callbacks = nil
	close(r.done)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(v, err)
	}
}

// IsPending reports whether this is the pending variant.
func (r *Result[T]) IsPending() bool {
	return r.pending
}

// Done reports whether the value is available without blocking.
func (r *Result[T]) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Result blocks until the value is available.
func (r *Result[T]) Result() (T, error) {
	<-r.done
	return r.value, r.err
}

// Await is Result bounded by ctx.
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnCompletion registers fn to be called exactly once with the outcome. If
// the Result is already resolved fn runs immediately on the calling
// goroutine; otherwise it runs on the worker that resolves it.
func (r *Result[T]) OnCompletion(fn func(T, error)) {
	r.mu.Lock()
	if !r.resolved {
		r.callbacks = append(r.callbacks, fn)
		r.mu.Unlock()
		return
	}
	v, err := r.value, r.err
	r.mu.Unlock()
	fn(v, err)
}

// Cancel runs the OnCancel hook and then tries to cancel the scheduled work.
// It returns false when the work already started or finished.
func (r *Result[T]) Cancel() bool {
	if r.onCancel != nil {
		r.onCancel()
	}
	if !r.pending {
		return true
	}
	return r.task.tryCancel()
}
