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

// Package queue implements the bounded, lock-free MPSC intake that sits in
// front of the sequential executor's work loop: a singly linked list of
// nodes with three atomically maintained cursors (head, tail, admitted)
// that together realize a bounded admission window without ever blocking a
// producer.
package queue

import (
	"go.uber.org/atomic"

	"github.com/tochemey/seqexec/task"
)

// Node is one element of the intake's linked list. Once its next pointer
// is published it is never changed, only ever read.
type Node struct {
	Task *task.Task
	seq  uint64
	next atomic.Pointer[Node]
}

// Next returns the successor published by the producer that appended the
// node after this one, or nil if none has been published yet.
func (n *Node) Next() *Node {
	return n.next.Load()
}

// after reports whether n was appended strictly after other, using the
// monotonically increasing sequence number assigned at append time. The
// source this was translated from compares list position directly by
// walking links; assigning each node a sequence number at CAS-append time
// makes that comparison an O(1) integer compare instead of a traversal,
// without changing the ordering it establishes.
func (n *Node) after(other *Node) bool {
	return n.seq > other.seq
}
