package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tally"

// StartCacheLoadSpan starts a span around a store load that fills a cache miss.
func StartCacheLoadSpan(ctx context.Context, category, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cache.load",
		trace.WithAttributes(
			attribute.String("cache.category", category),
			attribute.String("cache.key", key),
		),
	)
}

// StartInvalidationSpan starts a span for applying an invalidation set.
func StartInvalidationSpan(ctx context.Context, origin string, keys, prefixes int, all bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cache.invalidate",
		trace.WithAttributes(
			attribute.String("invalidation.origin", origin),
			attribute.Int("invalidation.keys", keys),
			attribute.Int("invalidation.prefixes", prefixes),
			attribute.Bool("invalidation.all", all),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
