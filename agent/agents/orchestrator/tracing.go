package orchestrator

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	nodex "github.com/tanpawarit/dep-brain/agent/nodes"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

// Resolved lazily so callers can install a tracer provider first.
var tracer = otel.Tracer("github.com/tanpawarit/dep-brain/orchestrator")

func startFlowSpan(ctx context.Context, flow contractx.Flow) (context.Context, trace.Span) {
	return tracer.Start(ctx, "brain.flow."+flow.String(),
		trace.WithAttributes(attribute.String("brain.flow", flow.String())),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// traced wraps a stage call in its own span.
func traced(name string, fn nodex.StageFunc) nodex.StageFunc {
	spanName := "brain.stage." + strings.ReplaceAll(strings.ToLower(name), " ", "_")
	return func(ctx context.Context, qs *statex.QueryState) (out *statex.QueryState, err error) {
		ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
			attribute.String("brain.query_id", qs.ID),
			attribute.String("brain.stage", name),
		))
		defer func() { endSpan(span, err) }()
		return fn(ctx, qs)
	}
}
