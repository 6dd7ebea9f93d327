// Package tracing wraps the otel tracer this module uses to emit spans
// around router dispatch and per-engine attempts. The router is its only
// caller; audio segment tasks are not traced.
// The module never installs a global TracerProvider itself (it is a
// library, not a service); callers that want spans exported wire one
// (e.g. stdouttrace, or any OTLP exporter) before calling into ccore.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/lfnovo/content-core"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span named name under ctx's current trace, tagged
// with the given key/value attribute pairs (must be an even count of
// string, value). Returns the derived context and an end function.
func StartSpan(ctx context.Context, name string, kv ...string) (context.Context, func(err error)) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], kv[i+1]))
	}
	ctx, span := tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
