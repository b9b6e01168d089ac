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

// Package diagnostics periodically reports an executor's admission-window
// stats on a cron schedule, for operators who want window-utilization
// visibility without scraping metrics.
package diagnostics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/tochemey/seqexec/executor"
	"github.com/tochemey/seqexec/logger"
)

// cronExpressionParser accepts an optional leading seconds field alongside
// the standard five, plus descriptors like "@every 30s".
var cronExpressionParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Reporter runs a gocron job that logs an Executor's Stats on a fixed
// schedule. The zero value is not usable; construct with NewReporter.
type Reporter struct {
	mu        sync.Mutex
	scheduler *gocron.Scheduler
	log       logger.Logger
	executors map[string]*executor.Executor
}

// NewReporter creates a Reporter. opts configure logging; the default is a
// no-op logger, matching the rest of this codebase's opt-in instrumentation.
func NewReporter(opts ...Option) *Reporter {
	r := &Reporter{
		scheduler: gocron.NewScheduler(time.UTC),
		log:       logger.NewLogger(logger.WithNop()),
		executors: make(map[string]*executor.Executor),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// Watch registers e to be reported on every tick, labelled by name. Watch
// rejects a name already in use so two callers never silently clobber each
// other's registration.
func (r *Reporter) Watch(name string, e *executor.Executor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.executors[name]; ok {
		return fmt.Errorf("diagnostics: %q is already watched", name)
	}
	r.executors[name] = e
	return nil
}

// Start schedules the periodic report at cronExpression and begins running
// it asynchronously: standard crontab specs, an optional leading seconds
// field, or a descriptor such as "@every 30s" are all accepted.
func (r *Reporter) Start(cronExpression string) error {
	if _, err := cronExpressionParser.Parse(cronExpression); err != nil {
		return errors.Wrapf(err, "diagnostics: invalid cron expression %q", cronExpression)
	}

	gocron.SetPanicHandler(func(jobName string, recoverData any) {
		r.log.Errorw(fmt.Errorf("%v", recoverData), "job", jobName)
	})

	_, err := r.scheduler.
		CronWithSeconds(cronExpression).
		Name("seqexec-diagnostics").
		SingletonMode().
		Do(r.report)
	if err != nil {
		return errors.Wrap(err, "diagnostics: failed to schedule report")
	}

	r.scheduler.StartAsync()
	return nil
}

// Stop halts the periodic report. Any in-flight report run completes.
func (r *Reporter) Stop(context.Context) error {
	r.scheduler.Stop()
	return nil
}

func (r *Reporter) report() {
	r.mu.Lock()
	snapshot := make(map[string]executor.Stats, len(r.executors))
	for name, e := range r.executors {
		snapshot[name] = e.Stats()
	}
	r.mu.Unlock()

	for name, stats := range snapshot {
		r.log.Infow("admission window",
			"executor", name,
			"capacity", stats.WindowCapacity,
			"occupancy", stats.WindowOccupancy,
			"in_flight", stats.InFlight,
		)
	}
}
