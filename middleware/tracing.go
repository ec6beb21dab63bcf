package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Legatia/DeFlow-sub000/dispatcher"
)

// tracerName is the instrumentation scope name for trigger tracing.
const tracerName = "github.com/Legatia/DeFlow-sub000/middleware"

// Tracing returns middleware that wraps each trigger fire in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through.
//
// Span attributes include: deflow.schedule.id, deflow.workflow.id,
// deflow.node.id, deflow.execution.count. On error, the span status is
// set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, req dispatcher.TriggerRequest, next Handler) error {
		ctx, span := tracer.Start(ctx, "deflow.trigger.fire",
			trace.WithAttributes(
				attribute.String("deflow.schedule.id", req.ScheduleID.String()),
				attribute.String("deflow.workflow.id", req.WorkflowID),
				attribute.String("deflow.node.id", req.NodeID),
				attribute.Int("deflow.execution.count", req.ExecutionCount),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
