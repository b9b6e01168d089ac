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

// Package dispatcher defines the external scheduling collaborator that the
// executor's work loop shares with the rest of an application: the thing
// that actually runs an activation on a goroutine. The executor never
// spawns goroutines itself; it submits a closure to a Dispatcher and trusts
// it to run that closure exactly once, eventually.
package dispatcher

// Dispatcher runs activations submitted to it. Implementations may run run
// inline, on a bounded worker pool, or on whatever scheduling fabric an
// application already has; the executor only depends on "submitted work
// eventually runs, at most once".
type Dispatcher interface {
	// Submit schedules run for execution. It must not block the caller
	// indefinitely waiting for run to finish. Submission and execution
	// are decoupled, which is what lets the executor's own submission
	// (from inside a running activation, when more work was appended
	// concurrently) stay cheap.
	Submit(run func())
}

// Func adapts a plain function to the Dispatcher interface, mirroring the
// standard library's http.HandlerFunc idiom. Submit calls run synchronously
// in the caller's goroutine, useful for tests that want deterministic,
// single-threaded scheduling without a separate Manual dispatcher.
type Func func(run func())

// Submit implements Dispatcher by invoking f.
func (f Func) Submit(run func()) { f(run) }
