package future

import (
	"context"
)

// StagedFuture is a two-stage asynchronous value. Its acceptance stage
// resolves once a downstream system has admitted the work that will
// eventually produce T; its result stage resolves once T itself is
// produced. The two stages are deliberately decoupled: a caller that only
// cares whether work was taken on can await acceptance without waiting for
// the (possibly much later) result.
type StagedFuture[T any] struct {
	acceptance Future[Future[T]]
	result     Future[T]
}

// NewStagedFuture builds a StagedFuture from an already-settled acceptance
// stage (acceptance resolves immediately to the future that will carry the
// result) and the result future it wraps.
func NewStagedFuture[T any](result Future[T]) StagedFuture[T] {
	return StagedFuture[T]{
		acceptance: Ready[Future[T]](result),
		result:     result,
	}
}

// NewNestedStagedFuture builds a StagedFuture from a future-of-a-future:
// acceptance resolves when the outer future does, at which point its value
// is the inner future that will carry the result. If acceptance fails, the
// result is considered failed with the same cause.
func NewNestedStagedFuture[T any](acceptance Future[Future[T]]) StagedFuture[T] {
	resultCompleter := NewCompleter[T]()
	go func() {
		inner, err := acceptance.Await(context.Background())
		if err != nil {
			resultCompleter.Failure(err)
			return
		}
		value, err := inner.Await(context.Background())
		if err != nil {
			resultCompleter.Failure(err)
			return
		}
		resultCompleter.Success(value)
	}()
	return StagedFuture[T]{acceptance: acceptance, result: resultCompleter.Future()}
}

// NewStagedFutureFromThunk creates a fresh acceptance/result pair and runs
// thunk asynchronously. Acceptance is fulfilled immediately, on scheduling,
// with the not-yet-resolved result future; the caller learns "this has been
// taken on" without waiting for thunk to finish.
func NewStagedFutureFromThunk[T any](thunk func() (T, error)) StagedFuture[T] {
	result := New(thunk)
	return StagedFuture[T]{
		acceptance: Ready[Future[T]](result),
		result:     result,
	}
}

// IsAccepted reports whether the acceptance stage has settled, without
// blocking.
func (s StagedFuture[T]) IsAccepted() bool {
	_, _, ok := s.acceptance.Poll()
	return ok
}

// OnAccept invokes fn with the result future once acceptance settles. fn
// runs on a dedicated goroutine; callers that need synchronous observation
// should use Await on the returned acceptance future instead.
func (s StagedFuture[T]) OnAccept(fn func(Future[T], error)) {
	go func() {
		inner, err := s.acceptance.Await(context.Background())
		fn(inner, err)
	}()
}

// Acceptance exposes the acceptance stage directly, for callers that want to
// await "admitted" without waiting for the result.
func (s StagedFuture[T]) Acceptance() Future[Future[T]] {
	return s.acceptance
}

// Await blocks until the result stage resolves or ctx is done. Both the
// acceptance wait and the result wait share the single deadline carried by
// ctx, rather than each getting their own. The source this was translated
// from applied a fresh "wait at most" duration to the second wait without
// subtracting time already spent on the first, effectively doubling the
// caller's budget. Reusing one ctx.Context for both waits sidesteps that
// bug by construction instead of reimplementing its arithmetic.
func (s StagedFuture[T]) Await(ctx context.Context) (T, error) {
	_, err := s.acceptance.Await(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	return s.result.Await(ctx)
}

// Poll reports the result's value without blocking.
func (s StagedFuture[T]) Poll() (T, error, bool) {
	return s.result.Poll()
}
