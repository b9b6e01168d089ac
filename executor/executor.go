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

// Package executor implements a sequential task executor: callers enqueue
// work from any number of goroutines, and a single cooperative work loop
// drains it in FIFO order, running at most one task body at a time while
// still allowing many asynchronous task bodies to be in flight
// concurrently, up to a configured admission window. The work loop never
// owns a goroutine of its own; it borrows one from a Dispatcher each time
// it has something to do, and gives it back the moment it runs out of
// budget or work.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/tochemey/seqexec/dispatcher"
	"github.com/tochemey/seqexec/future"
	"github.com/tochemey/seqexec/logger"
	"github.com/tochemey/seqexec/metrics"
	"github.com/tochemey/seqexec/queue"
	"github.com/tochemey/seqexec/task"
	"github.com/tochemey/seqexec/tracing"
)

// defaultBatchSize is how many nodes one activation will run before
// yielding control back to the dispatcher, so a busy executor never
// monopolizes a shared thread pool.
const defaultBatchSize = 200

// parkInterval is how long advanceNode parks while waiting for a producer
// to finish publishing a node's next link. Short enough to stay responsive,
// long enough not to spin a core hot.
const parkInterval = 100 * time.Nanosecond

// inflight is one task whose body has returned without a synchronous
// value: a child future the work loop must poll for completion before it
// can credit the task's window slot back.
type inflight struct {
	node  *queue.Node
	child future.Future[any]
}

// Executor is a sequential task executor with a bounded admission window.
// The zero value is not usable; construct with New.
type Executor struct {
	q          *queue.Queue
	dispatcher dispatcher.Dispatcher

	batchSize int32

	log      logger.Logger
	recorder *metrics.Recorder
	tracer   oteltrace.Tracer

	// diagnosticsInterval, when positive, is how often the ticker started by
	// startDiagnostics logs an admission-window snapshot. Set by WithDiagnosticsInterval; New
	// starts the ticker goroutine once construction otherwise succeeds.
	diagnosticsInterval time.Duration
	diagnosticsStop     chan struct{}

	// reentrancy marks which goroutine is currently inside activate, so a
	// task body that enqueues onto this same executor and then blocks on
	// the result panics instead of deadlocking the single-consumer loop.
	reentrancy future.ReentrancyGuard

	// inProgress and current are touched only from inside activate, which
	// by construction never runs concurrently with itself: the only paths
	// that resubmit activate (the empty→non-empty transition, the
	// batch-yield resubmission, and a suspended activation's resume
	// callback) each call dispatcher.Submit only after the previous
	// activation has made its last write to these fields, and that
	// activation touches them no more before it returns; the Submit call
	// establishes the happens-before edge the Go memory model requires.
	inProgress []inflight
	current    *queue.Node
}

// New builds an Executor backed by an admission window of bufLen slots,
// driven by d whenever it has work to run. bufLen must be at least 1; New
// returns an error for that violation rather than constructing a broken
// executor.
func New(bufLen int32, d dispatcher.Dispatcher, opts ...Option) (*Executor, error) {
	if bufLen < 1 {
		return nil, fmt.Errorf("executor: bufLen must be at least 1, got %d", bufLen)
	}

	e := &Executor{
		q:          queue.New(bufLen),
		dispatcher: d,
		batchSize:  defaultBatchSize,
		log:        logger.NewLogger(logger.WithNop()),
	}
	for _, opt := range opts {
		opt.apply(e)
	}
	if e.diagnosticsInterval > 0 {
		if err := e.startDiagnostics(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// enqueue appends t to the intake and, if this is the transition from
// empty to non-empty, submits the work loop. It returns whether t's
// acceptance fired synchronously with this call.
func (e *Executor) enqueue(t *task.Task) bool {
	t.Guard(&e.reentrancy)

	n := &queue.Node{Task: t}
	result := e.q.Append(n)

	if e.recorder != nil {
		e.recorder.Enqueued()
		if result.Outcome == queue.Accepted {
			e.recorder.AdmittedOne()
		}
	}

	if result.Activate {
		e.dispatcher.Submit(e.activate)
	}
	return result.Outcome == queue.Accepted
}

// activate is one work-loop activation: it runs nodes starting from where
// the previous activation left off (or from the head, if this is a fresh
// start) until the batch budget is spent, the window fills with no
// completed child to credit, or the queue drains.
func (e *Executor) activate() {
	e.reentrancy.Enter()
	defer e.reentrancy.Exit()

	ctx, span := tracing.StartActivation(context.Background(), e.tracer, e.pendingCount())
	defer span.End()

	start := time.Now()
	defer func() {
		if e.recorder != nil {
			e.recorder.ActivationDuration(time.Since(start))
		}
	}()

	node := e.current
	e.current = nil
	if node == nil {
		node = e.q.Head()
	}

	budget := e.batchSize
	for node != nil {
		// A node may sit in the list before its acceptance has fired (the
		// window was full when it was appended). The work loop must not
		// start it until admission catches up. That is the window's real
		// concurrency bound, not queue depth.
		if !e.q.IsAdmitted(node) {
			if e.compact() {
				continue
			}
			e.current = node
			e.suspend()
			return
		}

		if budget <= 0 {
			e.current = node
			e.q.SetHead(node)
			if e.recorder != nil {
				e.recorder.BatchYielded()
			}
			e.dispatcher.Submit(e.activate)
			return
		}
		budget--

		e.run(ctx, node)
		e.compact()

		next, drained := e.advanceNode(node)
		if drained {
			return
		}
		node = next
	}
}

// run executes one node's task body and either completes it immediately
// (sync shapes) or starts tracking its child future (async/staged shapes).
func (e *Executor) run(ctx context.Context, n *queue.Node) {
	_, span := tracing.StartTask(ctx, e.tracer, n.Task.ID.String())
	defer span.End()

	if e.recorder != nil {
		e.recorder.Dequeued()
		e.recorder.Started()
	}

	outcome := n.Task.Run()

	if outcome.Sync {
		n.Task.Complete(outcome.Value, outcome.Err)
		tracing.RecordError(span, outcome.Err)
		if outcome.Err != nil {
			e.log.WithCtx(n.Task.Ctx()).Debugw("task failed", "task_id", n.Task.ID.String(), "error", outcome.Err)
		}
		if e.recorder != nil {
			e.recorder.Completed(outcome.Err)
		}
		e.q.AdvanceAdmitted(1)
		return
	}

	e.q.IncInFlight()
	e.inProgress = append(e.inProgress, inflight{node: n, child: outcome.Child})
}

// compact removes every inProgress entry whose child has resolved,
// completes its task, and credits its slot back. It reports whether at
// least one entry was removed.
func (e *Executor) compact() bool {
	if len(e.inProgress) == 0 {
		return false
	}

	remaining := e.inProgress[:0]
	var credited int32
	for _, entry := range e.inProgress {
		value, err, ok := entry.child.Poll()
		if !ok {
			remaining = append(remaining, entry)
			continue
		}
		entry.node.Task.Complete(value, err)
		if err != nil {
			e.log.WithCtx(entry.node.Task.Ctx()).Debugw("task failed", "task_id", entry.node.Task.ID.String(), "error", err)
		}
		if e.recorder != nil {
			e.recorder.Completed(err)
		}
		e.q.DecInFlight()
		credited++
	}
	e.inProgress = remaining

	if credited > 0 {
		e.q.AdvanceAdmitted(credited)
		return true
	}
	return false
}

// suspend parks the activation until the first still-incomplete inProgress
// child resolves, then resubmits the work loop. Resumption is
// callback-driven, per the executor's single suspension point.
func (e *Executor) suspend() {
	watched := e.inProgress
	var once sync.Once
	resume := func() {
		once.Do(func() {
			e.dispatcher.Submit(e.activate)
		})
	}

	for _, entry := range watched {
		entry := entry
		go func() {
			_, _ = entry.child.Await(context.Background())
			resume()
		}()
	}
}

// advanceNode moves past node in the intake list, parking briefly if a
// concurrent producer hasn't yet published node's successor. If node is
// the tail, it drains the queue and reports done.
func (e *Executor) advanceNode(node *queue.Node) (next *queue.Node, drained bool) {
	for {
		if n := node.Next(); n != nil {
			return n, false
		}
		if e.q.TryDrain(node) {
			return nil, true
		}
		time.Sleep(parkInterval)
	}
}

func (e *Executor) pendingCount() int {
	return len(e.inProgress)
}

// Stats is a point-in-time snapshot of the executor's admission window,
// suitable for periodic reporting. Reading it never blocks the work loop:
// every field comes from an atomic load.
type Stats struct {
	// WindowCapacity is the configured admission window size (bufLen).
	WindowCapacity int32
	// WindowOccupancy is the admission cursor's occupancy count (see
	// queue.Queue.AdmittedLen): credits lower it only while the window is
	// full, so below capacity it can exceed the slots actually in use.
	WindowOccupancy int32
	// InFlight is the number of async task bodies whose child future has not
	// yet resolved.
	InFlight int32
}

// Stats returns a snapshot of the executor's admission window.
func (e *Executor) Stats() Stats {
	return Stats{
		WindowCapacity:  e.q.BufLen(),
		WindowOccupancy: e.q.AdmittedLen(),
		InFlight:        e.q.InFlight(),
	}
}

// startDiagnostics launches the ticker goroutine backing
// WithDiagnosticsInterval. Close stops it.
func (e *Executor) startDiagnostics() error {
	e.diagnosticsStop = make(chan struct{})
	ticker := time.NewTicker(e.diagnosticsInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats := e.Stats()
				e.log.Infow("admission window",
					"capacity", stats.WindowCapacity,
					"occupancy", stats.WindowOccupancy,
					"in_flight", stats.InFlight,
				)
			case <-e.diagnosticsStop:
				return
			}
		}
	}()
	return nil
}

// Close stops the diagnostics ticker started by WithDiagnosticsInterval, if
// any. Safe to call on an Executor constructed without that option.
func (e *Executor) Close() error {
	if e.diagnosticsStop != nil {
		close(e.diagnosticsStop)
	}
	return nil
}
