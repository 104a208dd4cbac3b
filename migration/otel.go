package migration

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startExecuteSpan creates the root span of a plan execution.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startExecuteSpan(ctx context.Context, plan *Plan, from string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("migration").Start(ctx, "migration.execute")
	span.SetAttributes(
		attribute.String("plan", plan.Name()),
		attribute.String("from_state", from),
	)

	return ctx, span
}

// startTransitionSpan creates a child span for one transition.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startTransitionSpan(ctx context.Context, t Transition) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("migration").Start(ctx, "migration."+string(t.Type))
	span.SetAttributes(
		attribute.String("migration", string(t.Type)),
		attribute.String("from_state", t.Source),
		attribute.String("to_state", t.Target),
	)

	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
