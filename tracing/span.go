package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tochemey/seqexec/executor"

// defaultTracer resolves tracer to the global TracerProvider's tracer when
// an Executor was not configured with its own (see executor.WithTracer).
func defaultTracer(tracer oteltrace.Tracer) oteltrace.Tracer {
	if tracer != nil {
		return tracer
	}
	return otel.Tracer(tracerName)
}

// StartActivation opens a span around one work-loop activation: a single
// call into the dispatcher that drains up to a batch's worth of admitted
// tasks. Call End on the returned span when the activation returns. A nil
// tracer falls back to the global TracerProvider's tracer.
func StartActivation(ctx context.Context, tracer oteltrace.Tracer, depth int) (context.Context, oteltrace.Span) {
	ctx, span := defaultTracer(tracer).Start(ctx, "executor.activation",
		oteltrace.WithAttributes(attribute.Int("seqexec.queue_depth", depth)))
	return ctx, span
}

// StartTask opens a span around a single task's Run, as a child of the
// enclosing activation span. A nil tracer falls back to the global
// TracerProvider's tracer.
func StartTask(ctx context.Context, tracer oteltrace.Tracer, taskID string) (context.Context, oteltrace.Span) {
	ctx, span := defaultTracer(tracer).Start(ctx, "executor.task",
		oteltrace.WithAttributes(attribute.String("seqexec.task_id", taskID)))
	return ctx, span
}

// RecordError marks span as failed and attaches err, mirroring the
// record-then-propagate pattern used at activation and task boundaries.
func RecordError(span oteltrace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
