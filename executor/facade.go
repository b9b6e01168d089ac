package executor

import (
	"context"

	"github.com/tochemey/seqexec/future"
	"github.com/tochemey/seqexec/task"
)

// EnqueueFireAndForget submits fn to run on the executor. The caller gets
// back only an acceptance signal; there is no result to observe. fn's
// errors are logged (if a logger is configured) rather than surfaced. ctx
// carries a request id through to those log lines; a nil or bare ctx still
// works, it just gets one assigned on its behalf.
func EnqueueFireAndForget(ctx context.Context, e *Executor, fn func() error) future.Future[struct{}] {
	var t *task.Task
	t = task.NewSync(ctx, task.FireAndForget, func() (struct{}, error) {
		err := fn()
		if err != nil {
			e.log.WithCtx(t.Ctx()).Errorw(err, "task_id", "fire-and-forget")
		}
		return struct{}{}, err
	})
	e.enqueue(t)
	return t.Admitted()
}

// EnqueueAwaitResult submits fn to run on the executor and returns a future
// for its eventual value. Acceptance is implicit: callers that care whether
// the executor has taken the work on, independent of the result, should use
// EnqueueStaged instead.
func EnqueueAwaitResult[T any](ctx context.Context, e *Executor, fn func() (T, error)) future.Future[T] {
	t := task.NewSync(ctx, task.ResultBearing, fn)
	e.enqueue(t)
	return eraseResult[T](e, t)
}

// EnqueueStaged submits a task whose body produces its own future.Future[T]
// (an async shape) and returns a StagedFuture exposing both the executor's
// acceptance and the task's eventual result.
func EnqueueStaged[T any](ctx context.Context, e *Executor, fn func() (future.Future[T], error)) future.StagedFuture[T] {
	t := task.NewFuture(ctx, task.ResultBearing, fn)
	accepted := e.enqueue(t)

	result := eraseResult[T](e, t)
	if accepted {
		return future.NewStagedFuture(result)
	}

	acceptance := future.NewGuarded(&e.reentrancy, func() (future.Future[T], error) {
		_, err := t.Admitted().Await(context.Background())
		return result, err
	})
	return future.NewNestedStagedFuture(acceptance)
}

// EnqueueChained submits a task whose body produces a future.StagedFuture[T]
// belonging to a downstream collaborator, and composes that collaborator's
// own acceptance with this executor's acceptance: the returned StagedFuture
// only reports "accepted" once both this executor and the downstream one
// have taken the work on.
func EnqueueChained[T any](ctx context.Context, e *Executor, fn func() (future.StagedFuture[T], error)) future.StagedFuture[T] {
	downstream := make(chan future.StagedFuture[T], 1)
	t := task.NewStaged(ctx, task.ResultBearing, func() (future.StagedFuture[T], error) {
		staged, err := fn()
		if err != nil {
			staged = future.NewStagedFuture(future.Failed[T](err))
		}
		downstream <- staged
		return staged, err
	})
	e.enqueue(t)

	acceptance := future.NewGuarded(&e.reentrancy, func() (future.Future[T], error) {
		_, err := t.Admitted().Await(context.Background())
		if err == nil {
			_, err = (<-downstream).Acceptance().Await(context.Background())
		}
		if err != nil {
			var zero future.Future[T]
			return zero, err
		}
		return eraseResult[T](e, t), nil
	})
	return future.NewNestedStagedFuture(acceptance)
}

// eraseResult adapts a *task.Task's type-erased result future back to a
// typed future.Future[T], guarded against e's single-consumer goroutine.
// The cast is safe: every constructor in this file stores exactly T-typed
// values in the task's result.
func eraseResult[T any](e *Executor, t *task.Task) future.Future[T] {
	c := future.NewGuardedCompleter[T](&e.reentrancy)
	go func() {
		value, err := t.Result().Await(context.Background())
		if err != nil {
			c.Failure(err)
			return
		}
		typed, _ := value.(T)
		c.Success(typed)
	}()
	return c.Future()
}
