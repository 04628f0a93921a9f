// Package deferred bridges callback-style and awaitable completion.
//
// Every asynchronous operation of the client returns a *Deferred. A caller
// may pass a Callback, in which case it is invoked exactly once with the
// outcome, and may also block on Await. Both observe the same single
// settlement:
//
//	d := deferred.Go(func(sig *Signature, err error) {
//		log.Printf("done: %v", err)
//	}, func() (*Signature, error) {
//		return fetch(ctx)
//	})
//	sig, err := d.Await(ctx)
package deferred

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Callback receives the outcome of a deferred operation. The error is nil on
// success.
type Callback[T any] func(T, error)

// Deferred is a single-assignment completion. The first call to Resolve,
// Reject or Complete wins; later calls are ignored.
type Deferred[T any] struct {
	settled atomic.Bool
	done    chan struct{}

	value T
	err   error
	cb    Callback[T]
}

// New returns a pending Deferred. cb may be nil.
func New[T any](cb Callback[T]) *Deferred[T] {
	return &Deferred[T]{
		done: make(chan struct{}),
		cb:   cb,
	}
}

// From adapts the consumer forms accepted by asynchronous operations:
// nil, a Callback[T], a plain func(T, error), or an existing *Deferred[T],
// which is returned as-is so the caller keeps observing it. Any other
// consumer panics.
func From[T any](consumer any) *Deferred[T] {
	switch c := consumer.(type) {
	case nil:
		return New[T](nil)
	case *Deferred[T]:
		if c == nil {
			return New[T](nil)
		}
		return c
	case Callback[T]:
		return New(c)
	case func(T, error):
		return New(Callback[T](c))
	}
	panic(fmt.Sprintf("deferred: unsupported consumer %T", consumer))
}

// Go runs fn in a new goroutine and settles the returned Deferred with its
// result. A panic in fn rejects the Deferred instead of crashing the
// process. A panic in the callback is not recovered.
func Go[T any](consumer any, fn func() (T, error)) *Deferred[T] {
	d := From[T](consumer)
	go run(d, fn)
	return d
}

func run[T any](d *Deferred[T], fn func() (T, error)) {
	v, err := protect(fn)
	d.Complete(v, err)
}

// protect calls fn and converts a panic into an error.
func protect[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("deferred: panic: %v", r)
		}
	}()
	return fn()
}

// Resolve settles the Deferred with a value.
func (d *Deferred[T]) Resolve(v T) bool {
	return d.Complete(v, nil)
}

// Reject settles the Deferred with an error. A nil error is replaced so a
// rejection is never mistaken for success.
func (d *Deferred[T]) Reject(err error) bool {
	if err == nil {
		err = fmt.Errorf("deferred: rejected with nil error")
	}
	var zero T
	return d.Complete(zero, err)
}

// Complete settles the Deferred with either outcome and invokes the
// callback, if any. It reports whether this call settled it. The callback
// must not Await its own Deferred.
func (d *Deferred[T]) Complete(v T, err error) bool {
	if !d.settled.CompareAndSwap(false, true) {
		return false
	}

	if err != nil {
		var zero T
		v = zero
	}
	d.value, d.err = v, err

	// Waiters are released after the callback returns.
	defer close(d.done)
	if d.cb != nil {
		d.cb(v, err)
	}
	return true
}

// Await blocks until the Deferred settles or ctx is done. A cancelled ctx
// does not settle the Deferred.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.value, d.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the Deferred settles.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether an outcome has been recorded.
func (d *Deferred[T]) Settled() bool {
	return d.settled.Load()
}

// Then returns a Deferred settled with fn applied to a successful value.
// Errors are passed through unchanged.
func Then[T, U any](d *Deferred[T], fn func(T) (U, error)) *Deferred[U] {
	out := New[U](nil)
	go func() {
		<-d.done
		if d.err != nil {
			out.Reject(d.err)
			return
		}
		out.Complete(fn(d.value))
	}()
	return out
}
