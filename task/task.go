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

// Package task defines the uniform, type-erased unit of work that rides the
// executor's queue. A Task is built from one of three "shapes" (sync,
// future, staged) crossed with one of two submission modes
// (fire-and-forget, result-bearing); rather than modeling those six
// combinations as separate mixin types, every Task stores the same set of
// fields and a closure that knows how to run its particular shape.
package task

import (
	"context"

	"github.com/google/uuid"

	"github.com/tochemey/seqexec/future"
	"github.com/tochemey/seqexec/requestid"
)

// Kind identifies a task body's completion shape.
type Kind uint8

const (
	// Sync task bodies return their value immediately.
	Sync Kind = iota
	// FutureKind task bodies return a future.Future[T]; the task completes
	// when that future resolves.
	FutureKind
	// StagedKind task bodies return a future.StagedFuture[T]; the task
	// occupies its queue slot until the staged future's result resolves.
	StagedKind
)

// Mode identifies a task's submission mode.
type Mode uint8

const (
	// FireAndForget tasks expose no result to their caller; the acceptance
	// signal resolves to an empty struct.
	FireAndForget Mode = iota
	// ResultBearing tasks expose their eventual value through a result
	// signal, and the acceptance signal carries that eventual future.
	ResultBearing
)

// ProgrammingError marks a violation of the executor's usage contract
// (e.g. double-resolving a signal, a re-entrant blocking wait). These are
// never recovered from; callers should let them crash the activation. It is
// an alias of future.ProgrammingError so that both packages' panics, which
// can originate from either side of the task/future boundary, are caught by
// the same type assertion.
type ProgrammingError = future.ProgrammingError

// Outcome is what running a Task body produces.
type Outcome struct {
	// Sync is true when Value/Err are already known; the task needs no
	// child future tracked against the admitted window.
	Sync bool
	// Value is the task's logical result, type-erased. Valid only when
	// Sync is true, or once Child has resolved.
	Value any
	// Err is the task's logical failure, if any. Valid only when Sync is
	// true.
	Err error
	// Child is the future the work loop must track as "in-flight async"
	// until it resolves. Non-nil exactly when Sync is false.
	Child future.Future[any]
}

// Task is the uniform, type-erased unit of work stored in a queue node.
type Task struct {
	ID uuid.UUID

	// ctx carries the caller's request id (and anything else they stashed
	// on it) through to the work loop's log lines, via requestid.Context so
	// a task submitted without one still gets an id rather than an empty
	// field.
	ctx context.Context

	kind Kind
	mode Mode

	body func() Outcome

	// admitted resolves exactly once, when this task's node is admitted
	// into the executor's window. Always struct{}-typed at this layer;
	// the façade wraps it to carry the right value for each submission
	// mode (see executor package).
	admitted future.Completer[struct{}]

	// result resolves exactly once with the task's logical value,
	// type-erased. nil for fire-and-forget tasks: nobody observes it, so
	// there is nothing to resolve.
	result future.Completer[any]

	ran bool // guards the "executed at most once" invariant
}

// Ctx returns the context the task was submitted with, carrying at least a
// request id (see requestid.Context).
func (t *Task) Ctx() context.Context { return t.ctx }

// Kind reports the task's completion shape.
func (t *Task) Kind() Kind { return t.kind }

// Mode reports the task's submission mode.
func (t *Task) Mode() Mode { return t.mode }

// Admitted returns the future that resolves when this task is admitted.
func (t *Task) Admitted() future.Future[struct{}] { return t.admitted.Future() }

// Result returns the future that resolves with the task's logical value.
// Callers must not invoke this for fire-and-forget tasks.
func (t *Task) Result() future.Future[any] {
	if t.result == nil {
		panic(&ProgrammingError{Msg: "task: Result() called on a fire-and-forget task"})
	}
	return t.result.Future()
}

// MarkAdmitted resolves the admission signal. It is the queue/executor's
// responsibility to call this at most once per task.
func (t *Task) MarkAdmitted() {
	t.admitted.Success(struct{}{})
}

// Guard ties this task's admission and result signals to g, so a blocking
// Await on either from the goroutine g marks as currently running panics
// instead of deadlocking. Called once by the executor at enqueue time.
func (t *Task) Guard(g *future.ReentrancyGuard) {
	t.admitted.Guard(g)
	if t.result != nil {
		t.result.Guard(g)
	}
}

// Run executes the task body exactly once and returns its Outcome. Calling
// Run a second time is a programming error.
func (t *Task) Run() Outcome {
	if t.ran {
		panic(&ProgrammingError{Msg: "task: Run() called more than once"})
	}
	t.ran = true
	return t.body()
}

// Complete resolves the result signal, if this task exposes one. Safe to
// call on fire-and-forget tasks (it is then a no-op).
func (t *Task) Complete(value any, err error) {
	if t.result == nil {
		return
	}
	if err != nil {
		t.result.Failure(err)
	} else {
		t.result.Success(value)
	}
}

func newTask(ctx context.Context, kind Kind, mode Mode, body func() Outcome) *Task {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &Task{
		ID:       uuid.New(),
		ctx:      requestid.Context(ctx),
		kind:     kind,
		mode:     mode,
		body:     body,
		admitted: future.NewCompleter[struct{}](),
	}
	if mode == ResultBearing {
		t.result = future.NewCompleter[any]()
	}
	return t
}

// NewSync builds a Sync-shaped task: fn runs to completion on the work
// loop's goroutine and its value is known synchronously.
func NewSync[T any](ctx context.Context, mode Mode, fn func() (T, error)) *Task {
	return newTask(ctx, Sync, mode, func() Outcome {
		value, err := fn()
		return Outcome{Sync: true, Value: value, Err: err}
	})
}

// NewFuture builds a Future-shaped task: fn either fails synchronously
// (e.g. it could not even start the work) or returns a future.Future[T]
// that the work loop tracks as in-flight until it resolves.
func NewFuture[T any](ctx context.Context, mode Mode, fn func() (future.Future[T], error)) *Task {
	return newTask(ctx, FutureKind, mode, func() Outcome {
		child, err := fn()
		if err != nil {
			return Outcome{Sync: true, Err: err}
		}
		return Outcome{Child: eraseFuture(child)}
	})
}

// NewStaged builds a Staged-shaped task: fn returns a
// future.StagedFuture[T] belonging to a downstream collaborator. The task
// occupies its slot until the staged future's result resolves; its own
// admission is independent of the downstream's acceptance (see the
// executor package's EnqueueChained for composing the two).
func NewStaged[T any](ctx context.Context, mode Mode, fn func() (future.StagedFuture[T], error)) *Task {
	return newTask(ctx, StagedKind, mode, func() Outcome {
		staged, err := fn()
		if err != nil {
			return Outcome{Sync: true, Err: err}
		}
		return Outcome{Child: eraseStagedResult(staged)}
	})
}

// eraseFuture adapts a future.Future[T] to the type-erased
// future.Future[any] the work loop tracks.
func eraseFuture[T any](f future.Future[T]) future.Future[any] {
	c := future.NewCompleter[any]()
	go func() {
		value, err := f.Await(context.Background())
		if err != nil {
			c.Failure(err)
			return
		}
		c.Success(value)
	}()
	return c.Future()
}

// eraseStagedResult adapts a future.StagedFuture[T]'s result stage to a
// type-erased future.Future[any].
func eraseStagedResult[T any](s future.StagedFuture[T]) future.Future[any] {
	c := future.NewCompleter[any]()
	go func() {
		value, err := s.Await(context.Background())
		if err != nil {
			c.Failure(err)
			return
		}
		c.Success(value)
	}()
	return c.Future()
}
