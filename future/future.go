/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package future provides single-resolution asynchronous values used to
// signal acceptance and completion of work handed off to another goroutine.
package future

import (
	"context"
	"runtime"
	"sync/atomic"
)

// ProgrammingError marks a violation of this package's usage contract (a
// signal resolved twice, a blocking Await that re-enters the single
// goroutine that would have to resolve it). These are never recovered
// from; callers should let them crash the activation.
type ProgrammingError struct {
	Msg string
}

func (e *ProgrammingError) Error() string { return e.Msg }

// ReentrancyGuard marks which goroutine is currently running on behalf of a
// single-consumer driver (an executor's work loop), so a blocking Await
// called from that same goroutine can be refused instead of deadlocking:
// nothing else will ever come along to resolve it. The zero value is ready
// to use; Enter/Exit bracket the driver's synchronous work.
type ReentrancyGuard struct {
	goroutine atomic.Uint64
}

// Enter records that the calling goroutine is now running the driver's
// work. Callers must defer Exit.
func (g *ReentrancyGuard) Enter() { g.goroutine.Store(goroutineID()) }

// Exit clears the record set by Enter.
func (g *ReentrancyGuard) Exit() { g.goroutine.Store(0) }

func (g *ReentrancyGuard) blocksCurrentGoroutine() bool {
	id := g.goroutine.Load()
	return id != 0 && id == goroutineID()
}

// goroutineID parses the calling goroutine's id out of its own stack trace
// header ("goroutine 123 [running]: ..."). It exists only to support
// ReentrancyGuard; never used for scheduling decisions.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that
// value could not be produced.
//
// A Future may be awaited any number of times by any number of goroutines;
// every call observes the same value or error once it settles.
type Future[T any] interface {
	// Await blocks until the Future is resolved or ctx is done, whichever
	// happens first.
	Await(ctx context.Context) (T, error)

	// Poll returns the Future's value immediately if it is already
	// resolved, without blocking.
	Poll() (value T, err error, ok bool)

	// complete resolves the Future exactly once. Sealed to this package so
	// that every Future in circulation is backed by a Completer.
	complete(T, error)
}

// Completer is a writable, single-assignment handle on a Future. Exactly one
// of Success or Failure must be called, exactly once.
type Completer[T any] interface {
	// Success resolves the Future with a value.
	Success(T)

	// Failure resolves the Future with an error.
	Failure(error)

	// Future returns the handle's read side.
	Future() Future[T]

	// Guard ties the Future to a ReentrancyGuard, so a blocking Await from
	// the goroutine the guard marks as currently running panics instead of
	// deadlocking. A nil guard (the default) means Await never makes that
	// check.
	Guard(g *ReentrancyGuard)
}

// future is the concrete Future implementation: a value guarded by a
// close-once "done" channel, so Await may be called repeatedly and from
// many goroutines without re-consuming a channel send.
type future[T any] struct {
	done  chan struct{}
	value T
	err   error
	guard *ReentrancyGuard
}

var _ Future[any] = (*future[any])(nil)

func newFuture[T any]() *future[T] {
	return &future[T]{done: make(chan struct{})}
}

// Await blocks until the Future is completed or ctx is canceled.
func (x *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.value, x.err
	default:
	}

	if x.guard != nil && x.guard.blocksCurrentGoroutine() {
		panic(&ProgrammingError{Msg: "future: Await called from the single-consumer goroutine that would have to resolve this Future"})
	}

	select {
	case <-x.done:
		return x.value, x.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Poll reports the Future's value without blocking.
func (x *future[T]) Poll() (T, error, bool) {
	select {
	case <-x.done:
		return x.value, x.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// complete resolves the Future. Callers must guarantee this runs at most
// once; Completer enforces that with the resolved flag's compare-and-swap.
func (x *future[T]) complete(value T, err error) {
	x.value = value
	x.err = err
	close(x.done)
}

// completer implements Completer.
type completer[T any] struct {
	resolved atomic.Bool
	inner    *future[T]
}

var _ Completer[any] = (*completer[any])(nil)

// NewCompleter returns a fresh Completer/Future pair. Exactly one of
// Success or Failure must be invoked on the Completer.
func NewCompleter[T any]() Completer[T] {
	return &completer[T]{inner: newFuture[T]()}
}

// NewGuardedCompleter is NewCompleter with the Future's Await pre-wired to
// guard, rather than requiring a separate Guard call before the Future
// escapes to a caller that might race Enter/Exit against it.
func NewGuardedCompleter[T any](guard *ReentrancyGuard) Completer[T] {
	c := &completer[T]{inner: newFuture[T]()}
	c.inner.guard = guard
	return c
}

// Success resolves the underlying Future with a value. Panics if the
// Completer has already been resolved.
func (p *completer[T]) Success(value T) {
	if !p.resolved.CompareAndSwap(false, true) {
		panic(&ProgrammingError{Msg: "future: Success/Failure called more than once on the same Completer"})
	}
	p.inner.complete(value, nil)
}

// Failure resolves the underlying Future with an error. Panics if the
// Completer has already been resolved.
func (p *completer[T]) Failure(err error) {
	if !p.resolved.CompareAndSwap(false, true) {
		panic(&ProgrammingError{Msg: "future: Success/Failure called more than once on the same Completer"})
	}
	var zero T
	p.inner.complete(zero, err)
}

// Future returns the completer's read side.
func (p *completer[T]) Future() Future[T] {
	return p.inner
}

// Guard ties the completer's Future to g. Must be called before the Future
// is shared with any goroutine that might call Await concurrently with
// this call, since guard is a plain (non-atomic) field write.
func (p *completer[T]) Guard(g *ReentrancyGuard) {
	p.inner.guard = g
}

// New creates a Future that runs task asynchronously in its own goroutine
// and resolves with whatever task returns.
func New[T any](task func() (T, error)) Future[T] {
	return NewGuarded(nil, task)
}

// NewGuarded is New with the resulting Future tied to guard (see
// Completer.Guard). Pass a nil guard for the same behavior as New.
func NewGuarded[T any](guard *ReentrancyGuard, task func() (T, error)) Future[T] {
	c := NewGuardedCompleter[T](guard)
	go func() {
		value, err := task()
		if err != nil {
			c.Failure(err)
		} else {
			c.Success(value)
		}
	}()
	return c.Future()
}

// Ready returns a Future that is already resolved with value.
func Ready[T any](value T) Future[T] {
	c := NewCompleter[T]()
	c.Success(value)
	return c.Future()
}

// Failed returns a Future that is already resolved with err.
func Failed[T any](err error) Future[T] {
	c := NewCompleter[T]()
	c.Failure(err)
	return c.Future()
}
