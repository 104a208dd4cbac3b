package scope

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startScopeSpan starts the span covering a root scope's lifetime. It is
// ended by endScopeSpan when the scope is disposed.
//
//nolint:spancheck // Span lifecycle managed by the scope
func startScopeSpan(ctx context.Context, s *Scope) trace.Span {
	tracer := otel.Tracer("scope")
	_, span := tracer.Start(ctx, "scope."+s.kind())
	span.SetAttributes(
		attribute.String("scope_id", s.id.String()),
		attribute.String("isolation", s.IsolationLevel().String()),
		attribute.String("cache_mode", s.CacheMode().String()),
	)

	return span
}

func endScopeSpan(span trace.Span, completed bool, err error) {
	if span == nil {
		return
	}

	span.SetAttributes(attribute.Bool("completed", completed))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
