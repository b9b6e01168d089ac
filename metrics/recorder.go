package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Recorder holds the instruments the executor updates as it admits, runs,
// and completes tasks. A nil *Recorder is valid and records nothing; the
// executor falls back to it when no meter is configured, so instrumentation
// never becomes a required dependency for using the executor.
type Recorder struct {
	admitted     metric.Int64Counter
	queued       metric.Int64UpDownCounter
	started      metric.Int64Counter
	completed    metric.Int64Counter
	failed       metric.Int64Counter
	batchYielded metric.Int64Counter
	activationMS metric.Float64Histogram
}

// NewRecorder builds a Recorder from the given meter name, using whatever
// MeterProvider is globally registered (set one up with Provider.Start, or
// leave the default no-op provider for tests).
func NewRecorder(meterName string) (*Recorder, error) {
	meter := otel.Meter(meterName)

	admitted, err := meter.Int64Counter("seqexec.tasks.admitted",
		metric.WithDescription("tasks admitted into the executor's window at enqueue time; admissions deferred by a full window are not counted"))
	if err != nil {
		return nil, err
	}
	queued, err := meter.Int64UpDownCounter("seqexec.tasks.queued",
		metric.WithDescription("tasks currently resident in the intake queue"))
	if err != nil {
		return nil, err
	}
	started, err := meter.Int64Counter("seqexec.tasks.started",
		metric.WithDescription("task bodies that have begun running"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("seqexec.tasks.completed",
		metric.WithDescription("tasks whose result resolved successfully"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("seqexec.tasks.failed",
		metric.WithDescription("tasks whose result resolved with an error"))
	if err != nil {
		return nil, err
	}
	batchYielded, err := meter.Int64Counter("seqexec.activations.batch_yielded",
		metric.WithDescription("activations that stopped early to give the dispatcher a turn"))
	if err != nil {
		return nil, err
	}
	activationMS, err := meter.Float64Histogram("seqexec.activation.duration_ms",
		metric.WithDescription("wall-clock duration of one work-loop activation"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		admitted:     admitted,
		queued:       queued,
		started:      started,
		completed:    completed,
		failed:       failed,
		batchYielded: batchYielded,
		activationMS: activationMS,
	}, nil
}

func (r *Recorder) AdmittedOne() {
	if r == nil {
		return
	}
	r.admitted.Add(context.Background(), 1)
}

func (r *Recorder) Enqueued() {
	if r == nil {
		return
	}
	r.queued.Add(context.Background(), 1)
}

func (r *Recorder) Dequeued() {
	if r == nil {
		return
	}
	r.queued.Add(context.Background(), -1)
}

func (r *Recorder) Started() {
	if r == nil {
		return
	}
	r.started.Add(context.Background(), 1)
}

func (r *Recorder) Completed(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.failed.Add(context.Background(), 1)
		return
	}
	r.completed.Add(context.Background(), 1)
}

func (r *Recorder) BatchYielded() {
	if r == nil {
		return
	}
	r.batchYielded.Add(context.Background(), 1)
}

func (r *Recorder) ActivationDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.activationMS.Record(context.Background(), float64(d.Microseconds())/1000.0)
}
