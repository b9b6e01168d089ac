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

package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tochemey/seqexec/collection/slice"
)

// poolOpts configures a Pool. The zero value is a Pool with no concurrency
// cap and no throttle; every Submit spawns a goroutine immediately.
type poolOpts struct {
	maxConcurrency int64
	limiter        *rate.Limiter
	submitTimeout  time.Duration
}

// PoolOption configures a Pool at construction time.
type PoolOption interface {
	apply(*poolOpts)
}

type poolOptionFunc func(*poolOpts)

func (f poolOptionFunc) apply(o *poolOpts) { f(o) }

// WithMaxConcurrency bounds the number of activations the Pool will run at
// once. Submissions beyond the bound block (with retry/backoff) until a
// slot frees up.
func WithMaxConcurrency(n int64) PoolOption {
	return poolOptionFunc(func(o *poolOpts) { o.maxConcurrency = n })
}

// WithRateLimit throttles how often the Pool starts new activations,
// independent of how many run concurrently.
func WithRateLimit(requestCount int, limitPeriod time.Duration) PoolOption {
	return poolOptionFunc(func(o *poolOpts) {
		o.limiter = rate.NewLimiter(rate.Every(limitPeriod), requestCount)
	})
}

// WithSubmitTimeout bounds how long Submit will retry acquiring a slot
// before giving up and running the activation inline anyway. Zero (the
// default) means wait indefinitely.
func WithSubmitTimeout(d time.Duration) PoolOption {
	return poolOptionFunc(func(o *poolOpts) { o.submitTimeout = d })
}

// Pool is a bounded goroutine-pool Dispatcher. It is the reference
// Dispatcher implementation for production use; tests typically prefer
// Manual for determinism.
type Pool struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration

	wg sync.WaitGroup

	active *slice.Slice[string]

	closeOnce sync.Once
	closed    chan struct{}
}

var _ Dispatcher = (*Pool)(nil)

// NewPool builds a Pool. With no options it is unbounded: Submit always
// spawns a goroutine straight away.
func NewPool(opts ...PoolOption) *Pool {
	o := &poolOpts{}
	for _, opt := range opts {
		opt.apply(o)
	}

	p := &Pool{
		limiter: o.limiter,
		timeout: o.submitTimeout,
		active:  slice.New[string](),
		closed:  make(chan struct{}),
	}
	if o.maxConcurrency > 0 {
		p.sem = semaphore.NewWeighted(o.maxConcurrency)
	}
	return p
}

// Submit acquires a slot (retrying with backoff if the pool is saturated)
// and runs run on its own goroutine.
func (p *Pool) Submit(run func()) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	id := uuid.NewString()
	p.active.Append(id)

	if p.sem != nil {
		if err := p.acquire(ctx); err != nil {
			// Timed out waiting for a slot: run inline rather than drop the
			// activation. A Dispatcher must never silently lose work.
			p.runInline(id, run)
			return
		}
	}

	if p.limiter != nil {
		_ = p.limiter.Wait(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.release(id)
		run()
	}()
}

// acquire retries sem.TryAcquire with exponential backoff until it succeeds
// or ctx is done, mirroring the retry-with-backoff pattern this repo's LLM
// client uses around its own rate-limited calls.
func (p *Pool) acquire(ctx context.Context) error {
	operation := func() error {
		if p.sem.TryAcquire(1) {
			return nil
		}
		return errSaturated
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // stop only when ctx is done
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// runInline runs an activation that never acquired a semaphore slot, so it
// only drops the activation's id afterwards.
func (p *Pool) runInline(id string, run func()) {
	defer p.forget(id)
	run()
}

func (p *Pool) release(id string) {
	if p.sem != nil {
		p.sem.Release(1)
	}
	p.forget(id)
}

func (p *Pool) forget(id string) {
	if items := p.active.Items(); len(items) > 0 {
		for i, v := range items {
			if v == id {
				p.active.Delete(i)
				break
			}
		}
	}
}

// Active returns the ids of activations submitted and not yet finished,
// including ones still waiting for a slot, for diagnostics.
func (p *Pool) Active() []string {
	return p.active.Items()
}

// Close waits for all submitted activations to finish. It is safe to call
// once; subsequent calls are no-ops.
func (p *Pool) Close() (err error) {
	p.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(30 * time.Second):
			err = multierr.Append(err, errCloseTimedOut)
		}
		close(p.closed)
	})
	return err
}

var errSaturated = poolError("dispatcher: pool saturated")
var errCloseTimedOut = poolError("dispatcher: close timed out waiting for activations to drain")

type poolError string

func (e poolError) Error() string { return string(e) }
