package executor

import (
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/tochemey/seqexec/logger"
	"github.com/tochemey/seqexec/metrics"
)

// Option configures an Executor at construction time, mirroring the
// functional-options idiom used throughout this codebase's ambient
// packages (see diagnostics.Option).
type Option interface {
	apply(*Executor)
}

type optionFunc func(*Executor)

func (f optionFunc) apply(e *Executor) { f(e) }

// WithLogger configures the executor's logger. The default is a no-op
// logger, so instrumentation is opt-in rather than required.
func WithLogger(log logger.Logger) Option {
	return optionFunc(func(e *Executor) { e.log = log })
}

// WithMeter configures the executor to record metrics through r. Passing
// nil (the default) disables metrics recording entirely.
func WithMeter(r *metrics.Recorder) Option {
	return optionFunc(func(e *Executor) { e.recorder = r })
}

// WithBatchSize overrides the number of nodes one activation will run
// before yielding back to the dispatcher. The default is 200; tests often
// lower this to exercise the yield path without needing a large queue.
func WithBatchSize(n int32) Option {
	return optionFunc(func(e *Executor) {
		if n > 0 {
			e.batchSize = n
		}
	})
}

// WithTracer configures the tracer activation and task spans are started
// on. The default is nil, which falls back to the global TracerProvider's
// tracer (see tracing.StartActivation), so tracing works out of the box
// once a Provider has been started without every caller needing to inject
// one explicitly.
func WithTracer(t oteltrace.Tracer) Option {
	return optionFunc(func(e *Executor) { e.tracer = t })
}

// WithDiagnosticsInterval starts a background ticker that logs the
// executor's Stats (capacity, occupancy, in-flight) every d, through
// whatever logger is configured (see WithLogger). Passing d <= 0 (the
// default) disables this entirely. Close stops the ticker.
func WithDiagnosticsInterval(d time.Duration) Option {
	return optionFunc(func(e *Executor) { e.diagnosticsInterval = d })
}
