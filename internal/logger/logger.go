// Package logger prints log lines tagged with the OpenTelemetry trace of the
// request that produced them.
package logger

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/trace"
)

func Printf(ctx context.Context, format string, args ...any) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		log.Printf(format, args...)
		return
	}
	log.Printf("trace_id=%s span_id=%s "+format,
		append([]any{sc.TraceID().String(), sc.SpanID().String()}, args...)...)
}
