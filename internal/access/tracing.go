package access

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScopeAccess = "archgate.access"

	traceSpanCheck      = "archgate.access.check"
	traceSpanSourceRead = "archgate.access.source_read"

	traceAttrObjectID = "archgate.object_id"
	traceAttrUser     = "archgate.user"
	traceAttrAction   = "archgate.action"
	traceAttrSource   = "archgate.source"
	traceAttrLevel    = "archgate.decision.level"
	traceAttrReason   = "archgate.decision.reason"
	traceAttrCacheHit = "archgate.cache_hit"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(traceScopeAccess).Start(ctx, name, trace.WithAttributes(attrs...))
}

func markSpanResult(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
