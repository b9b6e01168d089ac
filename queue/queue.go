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

package queue

import (
	"go.uber.org/atomic"
)

// admittedCursor is the {len, node} pair from spec: len is the admitted
// window's occupancy count, raised by one per admission and lowered by
// AdvanceAdmitted only while the window is full (below capacity a credit
// leaves it unchanged), and node is the furthest node whose producer has
// been told "accepted". Go has
// no compare-and-swap over an arbitrary two-word struct, so each slide of
// the window allocates a fresh cursor and CASes a pointer to it, one
// allocation per successful slide, trading a little garbage for a lock-free
// pair swap.
type admittedCursor struct {
	len  int32
	node *Node
}

// AppendOutcome reports what Append (and the CAS loop it drives) decided
// for a newly appended node.
type AppendOutcome int

const (
	// Accepted means the node's acceptance signal has already fired.
	Accepted AppendOutcome = iota
	// Pending means the admission window was full; the node's acceptance
	// signal will fire later, when the work loop slides the window.
	Pending
)

// AppendResult is Append's return value.
type AppendResult struct {
	Outcome AppendOutcome
	// Activate is true exactly when the queue transitioned from empty to
	// non-empty: the caller must submit the work loop to the dispatcher.
	Activate bool
}

// Queue is the bounded, lock-free MPSC intake. The zero value is not
// usable; construct with New.
type Queue struct {
	bufLen int32

	seq atomic.Uint64

	head     atomic.Pointer[Node]
	tail     atomic.Pointer[Node]
	admitted atomic.Pointer[admittedCursor]

	// inFlight is the number of async children currently occupying a slot.
	// Owned by the work loop (only it increments/decrements); read through
	// InFlight for reporting.
	inFlight atomic.Int32
}

// New creates a Queue with the given admission window capacity. bufLen must
// be at least 1; that precondition is enforced by the executor package, not
// here, since a programming error this fundamental should fail at the
// public constructor, not deep in the queue.
func New(bufLen int32) *Queue {
	q := &Queue{bufLen: bufLen}
	q.admitted.Store(&admittedCursor{})
	return q
}

// BufLen returns the configured admission window capacity.
func (q *Queue) BufLen() int32 { return q.bufLen }

// IncInFlight records that an async task body has started and is occupying
// a slot. Called only by the work loop.
func (q *Queue) IncInFlight() { q.inFlight.Add(1) }

// DecInFlight records that an in-flight async task has resolved, freeing
// its slot. Called only by the work loop, which must follow it with
// AdvanceAdmitted(1) to slide the window.
func (q *Queue) DecInFlight() { q.inFlight.Add(-1) }

// Head returns the node the work loop should run next, or nil if the queue
// is empty.
func (q *Queue) Head() *Node { return q.head.Load() }

// AdmittedLen returns the admission cursor's occupancy count. Each admission
// raises it by one; a credit lowers it only while the window is full, so
// below capacity it can be higher than the number of slots in use.
func (q *Queue) AdmittedLen() int32 { return q.admitted.Load().len }

// InFlight returns the number of async task bodies currently occupying a
// window slot while their child future is still unresolved.
func (q *Queue) InFlight() int32 { return q.inFlight.Load() }

// Full reports whether the admission window currently holds bufLen slots,
// i.e. no further node can be admitted until the work loop credits one back
// via AdvanceAdmitted.
func (q *Queue) Full() bool {
	return q.admitted.Load().len == q.bufLen
}

// IsAdmitted reports whether n's acceptance signal has already fired, by
// comparing n's position against the current admission frontier. The work
// loop must not run a node until this is true: that is the window's actual
// concurrency bound, not Full by itself: a long burst of already-admitted
// sync nodes can fill the window without any of them needing the work loop
// to wait.
func (q *Queue) IsAdmitted(n *Node) bool {
	cur := q.admitted.Load()
	return cur.node != nil && !n.after(cur.node)
}

// SetHead lets the work loop record its resume point when stashing
// in-progress state across a batch yield.
func (q *Queue) SetHead(n *Node) { q.head.Store(n) }

// Append adds a node to the tail of the list and attempts to extend the
// admission window to cover it, per spec §4.3.
func (q *Queue) Append(n *Node) AppendResult {
	n.seq = q.seq.Add(1)
	for {
		prev := q.tail.Load()
		if !q.tail.CompareAndSwap(prev, n) {
			continue
		}

		if prev == nil {
			q.head.Store(n)

			anchor := q.admitted.Load().node
			if anchor == nil {
				// Truly the first node ever appended: nothing has been
				// admitted before, so there is no in-flight occupancy to
				// respect.
				q.admitted.Store(&admittedCursor{len: 1, node: n})
				n.Task.MarkAdmitted()
				return AppendResult{Outcome: Accepted, Activate: true}
			}

			// The FIFO list drained to empty (TryDrain), but an async task
			// admitted before the drain may still be occupying a window
			// slot. anchor is that admission frontier; splice n onto it so
			// AdvanceAdmitted's chain walk can still reach n once a slot
			// frees, instead of overwriting the occupancy it represents.
			anchor.next.Store(n)
			return AppendResult{Outcome: q.extendWindow(anchor, n), Activate: true}
		}

		prev.next.Store(n)
		return AppendResult{Outcome: q.extendWindow(prev, n)}
	}
}

// extendWindow is the producer-side CAS loop that tries to slide the
// admitted cursor forward to cover newTail, per spec §4.3.
func (q *Queue) extendWindow(prev, newTail *Node) AppendOutcome {
	for {
		cur := q.admitted.Load()

		if cur.len == q.bufLen {
			return Pending
		}

		switch {
		case cur.node == prev:
			next := &admittedCursor{len: cur.len + 1, node: newTail}
			if q.admitted.CompareAndSwap(cur, next) {
				newTail.Task.MarkAdmitted()
				return Accepted
			}

		case cur.node == newTail:
			// Someone else's slide already admitted us.
			return Accepted

		case newTail.after(cur.node):
			// Best-effort help: try sliding the window forward by one node
			// on cur.node's behalf, then re-read and retry from scratch.
			if nxt := cur.node.Next(); nxt != nil {
				helped := &admittedCursor{len: cur.len + 1, node: nxt}
				if q.admitted.CompareAndSwap(cur, helped) {
					nxt.Task.MarkAdmitted()
				}
			}

		default:
			// cur.node has advanced past newTail: we must have been
			// admitted by that slide already.
			return Accepted
		}
	}
}

// AdvanceAdmitted credits n completed slots back to the window, sliding
// admitted forward over newly-admitted nodes and firing their acceptance
// signals, per spec §4.4.
func (q *Queue) AdvanceAdmitted(n int32) {
	for n > 0 {
		cur := q.admitted.Load()

		if cur.len == q.bufLen {
			nxt := cur.node.Next()
			if nxt == nil {
				// Draining below capacity with no waiter to notify.
				q.admitted.Store(&admittedCursor{len: q.bufLen - n, node: cur.node})
				return
			}
			q.admitted.Store(&admittedCursor{len: q.bufLen, node: nxt})
			nxt.Task.MarkAdmitted()
			n--
			continue
		}

		// Window not full: no waiter depends on this credit. The
		// CAS-to-itself is a barrier against a producer racing to extend
		// the window concurrently, not a state change. If it fails,
		// re-read and re-evaluate (the window may have just filled).
		if q.admitted.CompareAndSwap(cur, cur) {
			return
		}
	}
}

// TryDrain attempts to reset the list to empty once n (the node the work
// loop just finished) is the tail: CAS tail -> nil, then best-effort clear
// head. Returns true if the drain succeeded, meaning the work loop should
// stop; false means a producer is concurrently publishing a new tail and
// the caller should wait for n.Next() to become non-nil instead.
func (q *Queue) TryDrain(n *Node) bool {
	if !q.tail.CompareAndSwap(n, nil) {
		return false
	}
	q.head.Store(nil)
	return true
}
